package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/llm"
	"transmission-api/internal/lookup"
	"transmission-api/internal/query"
)

const (
	maxRequestBytes   = 16 << 10
	readyCheckTimeout = 2 * time.Second
)

type handlers struct {
	deps   Deps
	logger logger.Logger
}

type lookupRequest struct {
	Query string `json:"query"`
}

type lookupResponse struct {
	Reply      string `json:"reply"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (h *handlers) getTransmission(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Unreadable bodies are treated as a missing query.
		req.Query = ""
	}

	res, err := h.deps.Lookup.Lookup(r.Context(), req.Query)
	status := http.StatusOK
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		status = http.StatusServiceUnavailable
	case err != nil:
		h.logger.Error("lookup failed", map[string]interface{}{"error": err.Error()})
		status = http.StatusInternalServerError
	}

	if res == nil {
		res = &lookup.Result{Reply: lookup.MsgServiceDegraded}
	}
	writeJSON(w, status, lookupResponse{Reply: res.Reply, Suggestion: res.Suggestion})
}

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	if h.deps.Models == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "model listing not available"})
		return
	}
	models, err := h.deps.Models.ListModels(r.Context())
	if err != nil {
		h.logger.Warn("list models failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": string(lookup.ToStandardError(err).Code)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

type probeResponse struct {
	Test    string  `json:"test"`
	Model   string  `json:"model"`
	Seconds float64 `json:"seconds,omitempty"`
	Reply   string  `json:"reply,omitempty"`
	Error   string  `json:"error,omitempty"`
}

func (h *handlers) testSpeed(w http.ResponseWriter, r *http.Request) {
	if h.deps.Prober == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "probe not available"})
		return
	}
	res, err := llm.Probe(r.Context(), h.deps.Prober, h.deps.Model)
	if err != nil {
		h.logger.Warn("speed probe failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusBadGateway, probeResponse{
			Test:  "FALLIDO",
			Model: h.deps.Model,
			Error: string(lookup.ToStandardError(err).Code),
		})
		return
	}
	writeJSON(w, http.StatusOK, probeResponse{
		Test:    "EXITOSO",
		Model:   res.Model,
		Seconds: res.Seconds,
		Reply:   res.Text,
	})
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ready"}
	if h.deps.Catalog != nil {
		st, ok := h.deps.Catalog.Status()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "catalog not loaded"})
			return
		}
		body["catalog"] = st
	}
	if h.deps.Workflow != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		if err := h.deps.Workflow.HealthCheck(ctx); err != nil {
			h.logger.Warn("workflow broker not ready", map[string]interface{}{"error": err.Error()})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "workflow broker unreachable"})
			return
		}
		body["workflow"] = "ok"
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, lookupResponse{Reply: "Método no permitido."})
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
