package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const replySchema = `{
  "type": "object",
  "required": ["found"],
  "properties": {
    "found": {"type": "boolean"},
    "match": {"type": "string"}
  }
}`

func TestSchema_ValidateBytes(t *testing.T) {
	s := MustCompile(replySchema)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		wantCode  string
	}{
		{"valid", `{"found": true, "match": "Honda Accord"}`, true, ""},
		{"missing required", `{"match": "Honda Accord"}`, false, "REQUIRED"},
		{"wrong type", `{"found": "yes"}`, false, "INVALID_TYPE"},
		{"not json", `{found`, false, "PARSE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.ValidateBytes([]byte(tt.doc))
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantCode, res.Errors[0].Code)
				assert.NotEmpty(t, res.Error())
			}
		})
	}
}

func TestSchema_ValidateDocument(t *testing.T) {
	s := MustCompile(replySchema)
	assert.True(t, s.ValidateDocument(map[string]interface{}{"found": false}).Valid)
	assert.False(t, s.ValidateDocument([]interface{}{1, 2}).Valid)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": "nonsense"}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}
