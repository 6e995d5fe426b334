package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/service"
)

// BuildHandler serves the caller's builds. Every route requires a user.
type BuildHandler struct {
	service *service.BuildService
	logger  *slog.Logger
}

// NewBuildHandler creates a new BuildHandler.
func NewBuildHandler(svc *service.BuildService, logger *slog.Logger) *BuildHandler {
	return &BuildHandler{service: svc, logger: logger}
}

// HandleList returns the caller's builds, newest first.
//
// HTTP: GET /api/builds
func (h *BuildHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	builds, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, builds)
}

// HandleCreate prices and stores a build.
//
// HTTP: POST /api/builds
// REQUEST BODY: {"movements_id": 1, "cases_id": 2, "dials_id": null, ...}
func (h *BuildHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	body, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	refs, err := service.ParseRefs(body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	build, err := h.service.Create(r.Context(), user.ID, refs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, build)
}

// HandleDelete removes one of the caller's builds.
//
// HTTP: DELETE /api/builds/{id}
func (h *BuildHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publishRequest is the optional body of the publish route.
type publishRequest struct {
	Published *bool `json:"published"`
}

// HandlePublish sets the published flag. Without a body it publishes.
//
// HTTP: POST /api/builds/{id}/publish
// REQUEST BODY (optional): {"published": false}
func (h *BuildHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req publishRequest
	if err := decodeInto(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	published := true
	if req.Published != nil {
		published = *req.Published
	}

	build, err := h.service.Publish(r.Context(), user.ID, id, published)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, build)
}
