package lookuptransmission

import "transmission-api/internal/common/validation"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Reply          string `json:"reply"`
	Suggestion     string `json:"suggestion,omitempty"`
	Tier           string `json:"tier"`
	CandidateCount int    `json:"candidateCount"`
	Degraded       bool   `json:"degraded"`
}

// ToVariables names the process variables written on completion.
func (o *Output) ToVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"reply":          o.Reply,
		"tier":           o.Tier,
		"candidateCount": o.CandidateCount,
		"degraded":       o.Degraded,
	}
	if o.Suggestion != "" {
		vars["suggestion"] = o.Suggestion
	}
	return vars
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "maxLength": 500}
	}
}`)
