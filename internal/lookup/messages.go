package lookup

import (
	"fmt"
	"html"

	"transmission-api/internal/catalog"
	"transmission-api/internal/composer"
	"transmission-api/internal/suggest"
)

// User-facing replies. They never contain upstream error detail.
const (
	MsgEmptyQuery         = "Escribe un vehículo."
	MsgCatalogUnavailable = "Error: Base de datos no disponible temporalmente. Reintenta."
	MsgNotFound           = "No encontrado en mi base de datos, ¿Hay otra manera de nombrar a este vehículo?"
	MsgRateLimited        = "Alta demanda en este momento. Por favor reintenta en unos segundos."
	MsgServiceDegraded    = "No pude generar la respuesta en este momento. Por favor reintenta."
)

func didYouMean(raw string, s suggest.Suggestion) string {
	return fmt.Sprintf("No encontré \"%s\" en mi base de datos. ¿Quisiste decir <b>%s</b>?",
		html.EscapeString(raw), html.EscapeString(s.Text()))
}

func yearUnavailable(s suggest.Suggestion) string {
	return fmt.Sprintf("Tengo registros de <b>%s</b>, pero ninguno para el año %d. Revisa el año o escribe el motor.",
		html.EscapeString(s.Name), s.Year)
}

// candidateFallback answers from the raw catalog data when the completion
// service gave nothing usable.
func candidateFallback(candidates []catalog.Record) string {
	for _, r := range candidates {
		if r.TransModel == "" {
			continue
		}
		return composer.PostProcess(fmt.Sprintf(
			"Encontré posibles coincidencias como: **%s** para %s. Por favor especifica más el año o motor.",
			html.EscapeString(r.TransModel), html.EscapeString(r.Model)))
	}
	return MsgServiceDegraded
}
