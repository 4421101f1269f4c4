package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"transmission-api/internal/common/validation"
)

var (
	ErrCatalogUnavailable = errors.New("CATALOG_UNAVAILABLE")
	ErrMalformedCatalog   = errors.New("MALFORMED_CATALOG")
	ErrEmptyCatalog       = errors.New("EMPTY_CATALOG")
)

// payloadSchema accepts any non-empty array of objects. Field level checks
// are left to Record.UnmarshalJSON, which treats every value as text.
var payloadSchema = validation.MustCompile(`{
  "type": "array",
  "items": {"type": "object"}
}`)

// DecodeRecords parses a JSON catalog payload, preserving array order.
func DecodeRecords(data []byte) ([]Record, error) {
	if res := payloadSchema.ValidateBytes(data); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCatalog, res.Error())
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}
	return records, nil
}
