package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/service"
)

// UserHandler serves the caller's own directory record.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// HandleMe returns the caller, or an empty object for an anonymous request.
//
// HTTP: GET /api/me
// Auth: Optional
//
// The frontend calls this on load to learn who is logged in.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleProfile returns the caller's directory record.
//
// HTTP: GET /api/profile
// Auth: Required
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// profileRequest is the body of a profile update.
type profileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

// HandleUpdateProfile changes the caller's display name and bio.
//
// HTTP: PUT /api/profile
// REQUEST BODY: {"display_name": "Ada", "bio": "Collects divers."}
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	var req profileRequest
	if err := decodeInto(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.SubjectID, req.DisplayName, req.Bio)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
