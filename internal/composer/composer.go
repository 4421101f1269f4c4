// Package composer turns filtered candidates into the reply text returned to
// the user.
package composer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/filter"
	"transmission-api/internal/llm"
	"transmission-api/internal/query"
)

// DefaultPlaceholderCodes are catalog values meaning the code is unconfirmed.
var DefaultPlaceholderCodes = []string{"TBD", "N/A", "PENDIENTE", "POR CONFIRMAR"}

const DefaultPlaceholderLabel = "Modelo por confirmar"

type Config struct {
	Temperature      float64
	MaxOutputTokens  int
	PlaceholderCodes []string
	PlaceholderLabel string
}

type Composer struct {
	completer llm.Completer
	config    Config
	post      *PostProcessor
	logger    logger.Logger
}

func New(completer llm.Completer, cfg Config, log logger.Logger) *Composer {
	if cfg.PlaceholderCodes == nil {
		cfg.PlaceholderCodes = DefaultPlaceholderCodes
	}
	if cfg.PlaceholderLabel == "" {
		cfg.PlaceholderLabel = DefaultPlaceholderLabel
	}
	return &Composer{
		completer: completer,
		config:    cfg,
		post:      NewPostProcessor(cfg.PlaceholderCodes, cfg.PlaceholderLabel),
		logger:    logger.ForComponent(log, "composer"),
	}
}

// Compose asks the completion service for a reply about candidates and
// post-processes it. Errors wrap the llm sentinels.
func (c *Composer) Compose(ctx context.Context, candidates []catalog.Record, q query.ParsedQuery, tier filter.Tier) (string, error) {
	prompt := BuildPrompt(candidates, q, tier)
	text, err := c.completer.Complete(ctx, llm.Request{
		Prompt:          prompt,
		Temperature:     c.config.Temperature,
		MaxOutputTokens: c.config.MaxOutputTokens,
	})
	if err != nil {
		return "", err
	}

	reply := c.post.Process(text)
	if reply == "" {
		return "", fmt.Errorf("%w: reply empty after post-processing", llm.ErrMalformedReply)
	}
	c.logger.Debug("reply composed", map[string]interface{}{
		"tier":       string(tier),
		"candidates": len(candidates),
		"chars":      len(reply),
	})
	return reply, nil
}

// BuildPrompt is deterministic for a given input.
func BuildPrompt(candidates []catalog.Record, q query.ParsedQuery, tier filter.Tier) string {
	var b strings.Builder

	b.WriteString("Eres un experto en transmisiones automáticas.\n\n")
	b.WriteString("DATOS (marca modelo (años) | tipo | motor | transmisión):\n")
	for _, r := range candidates {
		fmt.Fprintf(&b, "%s (%s) | %s | %s | %s\n",
			r.Name(), r.YearRange, r.TransType, r.EngineSize, r.TransModel)
	}

	fmt.Fprintf(&b, "\nBUSCAN: %q\n", q.Raw)
	if tier == filter.TierRelaxed && q.HasYear() {
		fmt.Fprintf(&b, "\nNOTA: el modelo existe pero ningún registro cubre el año %d. "+
			"Indícalo al inicio y muestra los años disponibles.\n", q.Year)
	}

	b.WriteString("\nREGLAS:\n")
	b.WriteString("1. Una línea por cada código de transmisión distinto; no repitas códigos.\n")
	b.WriteString("2. Indica la tecnología de la transmisión (automática convencional, CVT, doble embrague).\n")
	b.WriteString("3. Incluye tracción y motor en los detalles.\n")
	b.WriteString("4. Usa solo los DATOS; no inventes códigos.\n")
	b.WriteString("5. Sin saludos ni despedidas.\n")

	b.WriteString("\nFORMATO:\n- **CÓDIGO** (detalles)\n")
	b.WriteString("\nEjemplo:\nPara Accord 2000:\n- **BAXA** (Automática 4 vel, FWD, 2.3L)\n")
	return b.String()
}

var (
	codeFence = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	boldPair  = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// PostProcessor cleans raw completion text for HTML display.
type PostProcessor struct {
	codes []string
	label string
}

func NewPostProcessor(codes []string, label string) *PostProcessor {
	upper := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			upper = append(upper, strings.ToUpper(c))
		}
	}
	return &PostProcessor{codes: upper, label: label}
}

// PostProcess applies the default placeholder settings.
func PostProcess(text string) string {
	return NewPostProcessor(DefaultPlaceholderCodes, DefaultPlaceholderLabel).Process(text)
}

// Process strips code fences, converts **bold** to <b>, newlines to <br>,
// then replaces placeholder codes with the label.
func (p *PostProcessor) Process(text string) string {
	out := codeFence.ReplaceAllString(text, "")
	out = strings.TrimSpace(strings.ReplaceAll(out, "\r\n", "\n"))
	out = boldPair.ReplaceAllString(out, "<b>$1</b>")
	out = strings.ReplaceAll(out, "\n", "<br>")
	return replaceCodes(out, p.codes, p.label)
}

// replaceCodes replaces case-insensitive occurrences of codes that are not
// part of a longer alphanumeric token. It is a single pass, so a label that
// contains a code is never replaced again.
func replaceCodes(s string, codes []string, label string) string {
	if len(codes) == 0 {
		return s
	}
	upper := strings.ToUpper(s)
	if len(upper) != len(s) {
		upper = s
	}
	var b strings.Builder
	last, i := 0, 0
	for i < len(upper) {
		matched := 0
		for _, code := range codes {
			if strings.HasPrefix(upper[i:], code) && boundaryBefore(s, i) && boundaryAfter(s, i+len(code)) {
				matched = len(code)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		b.WriteString(s[last:i])
		b.WriteString(label)
		i += matched
		last = i
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
