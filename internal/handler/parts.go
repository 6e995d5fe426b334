package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/service"
)

// PartHandler serves the catalog: public reads, owner-only writes.
type PartHandler struct {
	service *service.PartService
	logger  *slog.Logger
}

// NewPartHandler creates a new PartHandler.
func NewPartHandler(svc *service.PartService, logger *slog.Logger) *PartHandler {
	return &PartHandler{service: svc, logger: logger}
}

// HandleList returns every part of one type, newest first.
//
// HTTP: GET /api/parts/{partType}
func (h *PartHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	parts, err := h.service.List(r.Context(), chi.URLParam(r, "partType"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

// HandleGet returns one part.
//
// HTTP: GET /api/parts/{partType}/{id}
func (h *PartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	part, err := h.service.Get(r.Context(), chi.URLParam(r, "partType"), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

// HandleCreate stores a part owned by the caller.
//
// HTTP: POST /api/parts/{partType}
// REQUEST BODY: {"brand": "Seiko", "model": "NH35", "price": 49.99, ...}
func (h *PartHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	body, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	part, err := h.service.Create(r.Context(), chi.URLParam(r, "partType"), body, user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, part)
}

// HandleUpdate applies a partial update to one of the caller's parts.
//
// HTTP: PUT or PATCH /api/parts/{partType}/{id}
func (h *PartHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	part, err := h.service.Update(r.Context(), chi.URLParam(r, "partType"), id, body, user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

// HandleDelete removes one of the caller's parts.
//
// HTTP: DELETE /api/parts/{partType}/{id}
func (h *PartHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "partType"), id, user.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMine returns the caller's parts grouped by type.
//
// HTTP: GET /api/my/parts
// RESPONSE: {"movements": [...], "cases": [...], ..., "crowns": []}
func (h *PartHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	parts, err := h.service.ListByOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

// HandleMovementTypes lists the known movement types.
//
// HTTP: GET /api/movement-types
func (h *PartHandler) HandleMovementTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.MovementTypes(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if types == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, types)
}
