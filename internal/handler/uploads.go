package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/service"
)

// UploadHandler serves the two-step image upload and the public file route.
type UploadHandler struct {
	service *service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(svc *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{service: svc, logger: logger}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// HandlePresign reserves an upload key for the caller.
//
// HTTP: POST /api/uploads/presign
// REQUEST BODY: {"filename": "dial.png", "contentType": "image/png"}
// RESPONSE: {"key": "...", "uploadUrl": "...", "maxBytes": 10485760, "cdnUrl": "..."}
func (h *UploadHandler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req presignRequest
	if err := decodeInto(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.service.Presign(r.Context(), user.ID, req.Filename, req.ContentType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePut receives the bytes for a presigned key.
//
// HTTP: PUT /api/uploads/put?key=parts/<user id>/<hex>.png
//
// http.MaxBytesReader stops reading one byte past the ceiling; the service
// sees the extra byte and answers 413.
func (h *UploadHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	body := http.MaxBytesReader(w, r.Body, h.service.MaxBytes()+1)
	res, err := h.service.Put(r.Context(), user.ID, r.URL.Query().Get("key"), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleFile streams a stored upload. Public.
//
// HTTP: GET /api/uploads/file/*
func (h *UploadHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	obj, err := h.service.Open(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if !obj.ModTime.IsZero() {
		w.Header().Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj); err != nil {
		h.logger.Warn("streaming upload interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
