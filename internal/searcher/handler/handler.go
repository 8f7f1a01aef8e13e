// Package handler exposes the search service as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/logger"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/words", h.WordFrequencies)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search/batch", h.BatchSearch)
	mux.HandleFunc("GET /api/v1/match", h.Match)
	mux.HandleFunc("POST /api/v1/dedupe", h.Dedupe)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/cache/flush", h.FlushCache)
}

func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req service.AddDocumentRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.AddDocument(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int{"id": req.ID})
}

func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	policy, err := parsePolicy(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	removed := h.svc.RemoveDocument(r.Context(), id, policy)
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": removed})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, ok := h.svc.Document(id)
	if !ok {
		h.writeError(w, r, fmt.Errorf("document %d: %w", id, apperrors.ErrUnknownDocumentID))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) WordFrequencies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	freqs, err := h.svc.WordFrequencies(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "words": freqs})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.SearchRequest{Query: q.Get("q")}

	var err error
	if req.Policy, err = parsePolicy(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if s := q.Get("status"); s != "" {
		if req.Status, err = index.ParseStatus(s); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
	}
	if req.Page, err = intParam(q.Get("page"), "page"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.PageSize, err = intParam(q.Get("page_size"), "page_size"); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.Search(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	Queries []string `json:"queries"`
	Joined  bool     `json:"joined"`
}

// BatchSearch runs several queries against ACTUAL documents in parallel.
func (h *Handler) BatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	results, err := h.svc.ProcessQueries(r.Context(), req.Queries)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Joined {
		joined := slices.Concat(results...)
		if joined == nil {
			joined = []ranker.ScoredDoc{}
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"documents": joined})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("id"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: id must be an integer", apperrors.ErrInvalidArgument))
		return
	}
	policy, err := parsePolicy(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Match(r.Context(), q.Get("q"), id, policy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"words":  res.Words,
		"status": res.Status,
	})
}

func (h *Handler) Dedupe(w http.ResponseWriter, r *http.Request) {
	removed := h.svc.RemoveDuplicates(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.FlushCache(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding body: %w", apperrors.ErrInvalidInput, err)
	}
	return nil
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: document id must be an integer", apperrors.ErrInvalidArgument)
	}
	return id, nil
}

func parsePolicy(r *http.Request) (executor.Policy, error) {
	v := r.URL.Query().Get("parallel")
	if v == "" {
		return executor.Sequential, nil
	}
	parallel, err := strconv.ParseBool(v)
	if err != nil {
		return executor.Sequential, fmt.Errorf("%w: parallel must be a boolean", apperrors.ErrInvalidArgument)
	}
	if parallel {
		return executor.Parallel, nil
	}
	return executor.Sequential, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperrors.ErrInvalidArgument, name)
	}
	return n, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
