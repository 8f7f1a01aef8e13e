// Package handler accepts document events over HTTP and publishes them to
// the document topic, so writes reach every server consuming it.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/logger"
)

const maxBodyBytes = 8 << 20

type Handler struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(pub *publisher.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "events-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/events", h.Publish)
}

type publishRequest struct {
	Events []ingestion.DocumentEvent `json:"events"`
}

// Publish validates the whole batch and publishes it, answering 202 once the
// brokers have acknowledged it.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req publishRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(req.Events) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no events"})
		return
	}

	if err := h.publisher.Publish(r.Context(), req.Events...); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  err.Error(),
				"fields": validationErr.Fields,
			})
			return
		}
		log.Error("publishing events failed", "count", len(req.Events), "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "event stream unavailable"})
		return
	}
	log.Info("events accepted", "count", len(req.Events))
	h.writeJSON(w, http.StatusAccepted, map[string]int{"published": len(req.Events)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
