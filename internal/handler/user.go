package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
	"github.com/regionops/rims/internal/server/middleware"
)

// UserHandler serves the account-management endpoints. Reads require any
// authenticated session; mutations additionally pass the RequireAdmin gate
// before reaching this handler.
type UserHandler struct {
	dir directory.Directory
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(dir directory.Directory) *UserHandler {
	return &UserHandler{dir: dir}
}

// List returns all accounts plus the viewer identity.
// GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.ListUsers(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"viewer": viewer(r),
	})
}

type createUserRequest struct {
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// Create adds a new account.
// POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	actor := middleware.GetSessionUser(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.dir.CreateUser(r.Context(), directory.CreateUserInput{
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	}, *actor)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

type updateRoleRequest struct {
	Role model.Role `json:"role"`
}

// UpdateRole changes an account's role.
// PATCH /api/v1/users/{id}
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	actor := middleware.GetSessionUser(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.dir.UpdateUserRole(r.Context(), chi.URLParam(r, "id"), req.Role, *actor)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Delete removes an account.
// DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetSessionUser(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.dir.DeleteUser(r.Context(), chi.URLParam(r, "id"), *actor); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
