package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/brunobiangulo/docreader"
)

// maxBatch bounds the number of documents in one /read/batch call.
const maxBatch = 100

type handler struct {
	reader  docreader.Reader
	maxBody int64
	metrics *metrics
}

// newHandler sizes request bodies from the document limit: base64 in JSON
// inflates content by a third, plus room for options.
func newHandler(r docreader.Reader, maxFileSize int64) *handler {
	maxBody := int64(0)
	if maxFileSize > 0 {
		maxBody = maxFileSize*4/3 + 1<<20
	}
	return &handler{reader: r, maxBody: maxBody, metrics: newMetrics()}
}

// routes builds the mux and the middleware chain:
// recovery -> cors -> auth -> logging -> metrics -> mux.
func (h *handler) routes(apiKey, corsOrigins string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /read", h.handleRead)
	mux.HandleFunc("POST /read/batch", h.handleReadBatch)
	mux.HandleFunc("POST /read/url", h.handleReadURL)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.handler())

	var handler http.Handler = h.metrics.middleware(mux)
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}

// POST /read
// Accepts a multipart upload (field "file", optional "file_type",
// "request_id" and JSON "options") or a JSON docreader.Request with
// base64 content.
func (h *handler) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req docreader.Request
	var err error
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		req, err = h.multipartRequest(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON document")
		slog.Warn("decoding read request", "error", err)
		return
	}

	resp := h.reader.Read(ctx, req)
	h.metrics.observe(resp, len(req.Content))
	writeJSON(w, statusFor(resp.Err), resp)
}

// POST /read/url
// Body: {"url": "...", "file_type": "...", "request_id": "...", "options": {...}}
func (h *handler) handleReadURL(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		URL       string                    `json:"url"`
		FileType  string                    `json:"file_type"`
		RequestID string                    `json:"request_id"`
		Options   *docreader.RequestOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	var opts []docreader.ReadOption
	if req.FileType != "" {
		opts = append(opts, docreader.WithFileType(req.FileType))
	}
	if req.RequestID != "" {
		opts = append(opts, docreader.WithRequestID(req.RequestID))
	}
	if req.Options != nil {
		opts = append(opts, docreader.WithOptions(*req.Options))
	}

	resp, err := h.reader.ReadURL(ctx, req.URL, opts...)
	if err != nil {
		slog.Warn("fetching document", "url", req.URL, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	h.metrics.observe(resp, 0)
	writeJSON(w, statusFor(resp.Err), resp)
}

func (h *handler) multipartRequest(r *http.Request) (docreader.Request, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return docreader.Request{}, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return docreader.Request{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return docreader.Request{}, err
	}
	req := docreader.Request{
		// Sanitise filename: only the base name is meaningful.
		FileName:  filepath.Base(header.Filename),
		FileType:  r.FormValue("file_type"),
		RequestID: r.FormValue("request_id"),
		Content:   content,
	}
	if raw := r.FormValue("options"); raw != "" {
		var opts docreader.RequestOptions
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return docreader.Request{}, err
		}
		req.Options = &opts
	}
	return req, nil
}

// POST /read/batch
func (h *handler) handleReadBatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Minute)
	defer cancel()

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody*8)
	}

	var req struct {
		Requests []docreader.Request `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests is required")
		return
	}
	if len(req.Requests) > maxBatch {
		writeError(w, http.StatusBadRequest, "too many documents in one batch")
		return
	}

	responses := h.reader.ReadBatch(ctx, req.Requests)
	for i, resp := range responses {
		h.metrics.observe(resp, len(req.Requests[i].Content))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"responses": responses,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"formats": h.reader.Formats(),
	})
}

// statusFor maps a read failure to an HTTP status. A .doc whose text could
// not be recovered is not a failure.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, docreader.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, docreader.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docreader.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, docreader.ErrParsingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, docreader.ErrFetchFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
