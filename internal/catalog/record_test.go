package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `[
  {"Make": "HONDA", "Model": "ACCORD", "Years": "98-02", "Trans Type": "4 SP FWD", "Engine Type / Size": "L4 2.3L", "Trans Model": "BAXA"},
  {"make": "Honda", "MODEL": "Civic", "years": 2004, "trans_type": "5 SP FWD", "engine type/size": null, "Trans Model": "SLXA"},
  {"Make": "Mazda", "Model": "CX-9", "Years": "2007-UP", "Trans Type": "6 SPEED AWD", "Extra": "ignored"}
]`

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Record{
		Make: "HONDA", Model: "ACCORD", YearRange: "98-02", TransType: "4 SP FWD",
		EngineSize: "L4 2.3L", TransModel: "BAXA",
	}, records[0])

	assert.Equal(t, "Honda", records[1].Make)
	assert.Equal(t, "Civic", records[1].Model)
	assert.Equal(t, "2004", records[1].YearRange)
	assert.Equal(t, "5 SP FWD", records[1].TransType)
	assert.Equal(t, "", records[1].EngineSize)

	assert.Equal(t, "Mazda CX-9", records[2].Name())
	assert.Equal(t, "", records[2].TransModel)
}

func TestDecodeRecords_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", `<html>rate limited</html>`, ErrMalformedCatalog},
		{"object instead of array", `{"Make": "Honda"}`, ErrMalformedCatalog},
		{"array of strings", `["Honda"]`, ErrMalformedCatalog},
		{"empty array", `[]`, ErrEmptyCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecords([]byte(tt.payload))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
