// Package catalog loads and caches the transmission catalog.
package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// Record is one catalog row. Every field is untrusted free text.
type Record struct {
	Make       string `json:"Make"`
	Model      string `json:"Model"`
	YearRange  string `json:"Years"`
	TransType  string `json:"Trans Type"`
	EngineSize string `json:"Engine Type / Size"`
	TransModel string `json:"Trans Model"`
}

// Name is the "<make> <model>" display name.
func (r Record) Name() string {
	return strings.TrimSpace(strings.TrimSpace(r.Make) + " " + strings.TrimSpace(r.Model))
}

// fieldAliases maps folded JSON keys to record fields.
var fieldAliases = map[string]func(*Record) *string{
	"make":              func(r *Record) *string { return &r.Make },
	"brand":             func(r *Record) *string { return &r.Make },
	"model":             func(r *Record) *string { return &r.Model },
	"years":             func(r *Record) *string { return &r.YearRange },
	"year":              func(r *Record) *string { return &r.YearRange },
	"yearrange":         func(r *Record) *string { return &r.YearRange },
	"transtype":         func(r *Record) *string { return &r.TransType },
	"transmissiontype":  func(r *Record) *string { return &r.TransType },
	"enginetypesize":    func(r *Record) *string { return &r.EngineSize },
	"enginesize":        func(r *Record) *string { return &r.EngineSize },
	"engine":            func(r *Record) *string { return &r.EngineSize },
	"transmodel":        func(r *Record) *string { return &r.TransModel },
	"transmissionmodel": func(r *Record) *string { return &r.TransModel },
}

// UnmarshalJSON tolerates inconsistent key casing and punctuation, and
// non-string values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{}
	for key, value := range raw {
		field, ok := fieldAliases[foldKey(key)]
		if !ok {
			continue
		}
		*field(r) = toText(value)
	}
	return nil
}

func foldKey(key string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(key) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func toText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
