package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// UserHandler serves the user profile routes.
type UserHandler struct {
	users *realtycms.UserService
}

// NewUserHandler creates a user handler.
func NewUserHandler(users *realtycms.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Routes returns the profile routes.
func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/google", h.providerLogin("Google"))
	r.Post("/login/google", h.providerLogin("Google"))
	r.Post("/facebook", h.providerLogin("Facebook"))
	r.Post("/login/facebook", h.providerLogin("Facebook"))
	r.Get("/user/{uid}", h.GetUser)
	return r
}

// Register creates a non-admin profile.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req realtycms.RegisterUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errorJSON(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"message": "User registered successfully",
		"user":    user,
	})
}

// providerLogin upserts the profile of a user signed in through provider.
func (h *UserHandler) providerLogin(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req realtycms.RegisterUserRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			errorJSON(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		user, err := h.users.UpsertProviderUser(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]any{
			"message": "User logged in with " + provider,
			"user":    user,
		})
	}
}

// GetUser returns a profile by uid.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByUID(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"user": user})
}
