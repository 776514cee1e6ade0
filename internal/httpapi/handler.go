package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"dispute-analytics/internal/analytics"
	"dispute-analytics/internal/service"
)

// Handler serves analytics requests.
type Handler struct {
	analyzer Analyzer
	logger   zerolog.Logger
}

type errorBody struct {
	Kind      string `json:"errorKind"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	q := r.URL.Query()

	tenant := chi.URLParam(r, "tenant")
	if tenant == "" {
		tenant = strings.TrimSpace(q.Get("tenant"))
	}

	rng, err := analytics.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errorBody{
			Kind:      string(service.KindInvalidRequest),
			Message:   "invalid date range",
			Detail:    err.Error(),
			RequestID: reqID,
		})
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), service.Request{TenantID: tenant, Range: rng})
	if err != nil {
		status, body := mapPipelineError(err)
		body.RequestID = reqID
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("request_id", reqID).Str("tenant", tenant).Msg("analytics request failed")
		}
		writeError(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func mapPipelineError(err error) (int, errorBody) {
	var pe *service.PipelineError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, errorBody{Kind: "internal_error", Message: "could not load dispute data"}
	}

	body := errorBody{Kind: string(pe.Kind), Message: pe.Message, Detail: pe.Detail}
	switch pe.Kind {
	case service.KindInvalidRequest:
		return http.StatusBadRequest, body
	case service.KindUnknownTenant:
		return http.StatusNotFound, body
	case service.KindTimeout:
		return http.StatusGatewayTimeout, body
	case service.KindCanceled:
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusBadGateway, body
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, map[string]errorBody{"error": body})
}
