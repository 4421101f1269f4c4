package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"transmission-api/internal/common/validation"
	"transmission-api/internal/llm"
)

var replySchema = validation.MustCompile(`{
  "type": "object",
  "required": ["found"],
  "properties": {
    "found": {"type": "boolean"},
    "match": {"type": ["string", "null"]}
  }
}`)

type correctorReply struct {
	Found bool   `json:"found"`
	Match string `json:"match"`
}

// LLMCorrector asks the completion service to pick the intended name.
type LLMCorrector struct {
	completer llm.Completer
	maxTokens int
}

func NewLLMCorrector(completer llm.Completer) *LLMCorrector {
	return &LLMCorrector{completer: completer, maxTokens: 100}
}

func (c *LLMCorrector) Correct(ctx context.Context, text string, known []string) (string, bool, error) {
	if strings.TrimSpace(text) == "" || len(known) == 0 {
		return "", false, nil
	}
	raw, err := c.completer.Complete(ctx, llm.Request{
		Prompt:          correctorPrompt(text, known),
		Temperature:     0,
		MaxOutputTokens: c.maxTokens,
	})
	if err != nil {
		return "", false, err
	}

	reply, err := parseReply(raw)
	if err != nil {
		return "", false, err
	}
	if !reply.Found {
		return "", false, nil
	}
	match, ok := lookupKnown(reply.Match, known)
	return match, ok, nil
}

func correctorPrompt(text string, known []string) string {
	var b strings.Builder
	b.WriteString("Corrige errores de escritura en el nombre de un vehículo.\n")
	b.WriteString("LISTA DE VEHÍCULOS CONOCIDOS:\n")
	for _, name := range known {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nEL USUARIO ESCRIBIÓ: %q\n\n", text)
	b.WriteString("Si corresponde a un vehículo de la lista responde SOLO con JSON ")
	b.WriteString(`{"found": true, "match": "<nombre exacto de la lista>"}`)
	b.WriteString(". Si no, responde ")
	b.WriteString(`{"found": false}`)
	b.WriteString(".\n")
	return b.String()
}

var fence = regexp.MustCompile("```[A-Za-z]*")

// parseReply extracts the first JSON object from a chatty completion.
func parseReply(raw string) (*correctorReply, error) {
	s := fence.ReplaceAllString(raw, "")
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in corrector reply", llm.ErrMalformedReply)
	}
	doc := []byte(s[start : end+1])

	if res := replySchema.ValidateBytes(doc); !res.Valid {
		return nil, fmt.Errorf("%w: %s", llm.ErrMalformedReply, res.Error())
	}
	var reply correctorReply
	if err := json.Unmarshal(doc, &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedReply, err)
	}
	return &reply, nil
}
