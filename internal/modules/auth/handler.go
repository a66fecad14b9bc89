package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/validation"
)

// Handler exposes login and session endpoints.
type Handler struct {
	service      Service
	loginLimiter func(http.Handler) http.Handler
}

// NewHandler builds the auth handler. loginLimiter may be nil.
func NewHandler(service Service, loginLimiter func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, loginLimiter: loginLimiter}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.loginLimiter != nil {
				r.Use(h.loginLimiter)
			}
			r.Post("/login", h.login)
		})
		r.With(RequireAuth(h.service)).Get("/me", h.me)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		logging.FromContext(r.Context()).WithError(err).Error("login failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(w, http.StatusOK, resp)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	respond(w, http.StatusOK, u)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
