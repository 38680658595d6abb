// Package handler provides the HTTP handlers for the question server.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stevemurr/question-server/question"
	"github.com/stevemurr/question-server/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errUnexpectedData = errors.New("unexpected data after JSON object")

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store  store.Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(s store.Store) *Handler {
	return NewWithLogger(s, slog.Default())
}

// NewWithLogger is like New but reports unexpected store failures to logger.
func NewWithLogger(s store.Store, logger *slog.Logger) *Handler {
	h := &Handler{store: s, logger: logger, mux: http.NewServeMux()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	h.mux.HandleFunc("GET /questions", h.listQuestions)
	h.mux.HandleFunc("GET /questions/{id}", h.getQuestion)
	h.mux.HandleFunc("POST /questions", h.createQuestion)
	h.mux.HandleFunc("PUT /questions/{id}", h.updateQuestion)
	h.mux.HandleFunc("DELETE /questions/{id}", h.deleteQuestion)

	// Read-only copy of the persisted document.
	h.mux.HandleFunc("GET /data", h.exportData)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readObject decodes a JSON object body. Numbers are kept as json.Number so
// large ids survive. An empty body decodes as an empty object; anything after
// the object is rejected.
func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	d := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	d.UseNumber()
	doc := map[string]any{}
	if err := d.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, errUnexpectedData
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// fail maps a store or coercion error onto a response. Unexpected errors are
// logged and answered with the generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict), errors.Is(err, question.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), generic, "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, generic)
	}
}

// pathID parses the {id} path segment. A value that is not an integer can
// never match a stored question.
func pathID(r *http.Request) (int64, bool) {
	id, err := question.ParseID(r.PathValue("id"))
	return id, err == nil
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Questions API is running",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- questions ----------

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.store.List()
	if err != nil {
		h.fail(w, r, err, "error listing questions")
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	q, err := h.store.Get(id)
	if err != nil {
		h.fail(w, r, err, "error reading question")
		return
	}
	if q == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	doc, err := readObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	candidate, err := question.ParseCandidate(doc)
	if err != nil {
		h.fail(w, r, err, "error creating question")
		return
	}
	created, err := h.store.Add(candidate)
	if err != nil {
		h.fail(w, r, err, "error creating question")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	doc, err := readObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	patch, err := question.ParsePatch(doc)
	if err != nil {
		h.fail(w, r, err, "error updating question")
		return
	}
	if patch.Empty() {
		h.logger.DebugContext(r.Context(), "empty update", "id", id)
	}
	updated, err := h.store.Update(id, patch)
	if err != nil {
		h.fail(w, r, err, "error updating question")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	removed, err := h.store.Delete(id)
	if err != nil {
		h.fail(w, r, err, "error deleting question")
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

// ---------- export ----------

func (h *Handler) exportData(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Export()
	if err != nil {
		h.fail(w, r, err, "error reading data")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
