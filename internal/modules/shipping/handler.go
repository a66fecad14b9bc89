package shipping

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/validation"
)

// Handler exposes service and route HTTP endpoints.
type Handler struct {
	service      Service
	requireAdmin func(http.Handler) http.Handler
}

func NewHandler(service Service, requireAdmin func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, requireAdmin: requireAdmin}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/services", func(r chi.Router) {
		r.Get("/", h.listServices)
		r.Get("/search", h.searchServices)
		r.Get("/{id}", h.getService)

		r.Group(func(r chi.Router) {
			if h.requireAdmin != nil {
				r.Use(h.requireAdmin)
			}
			r.Post("/", h.createService)
			r.Put("/{id}", h.updateService)
			r.Delete("/{id}", h.deleteService)
		})
	})
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, services)
}

func (h *Handler) searchServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	services, err := h.service.SearchServices(r.Context(), q.Get("pol"), q.Get("pod"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, services)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.service.CreateService(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, s)
}

func (h *Handler) updateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.service.UpdateService(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteService(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "Service deleted successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrInvalidReference):
		respondError(w, http.StatusBadRequest, ErrInvalidReference.Error())
	case validation.IsInvalid(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).WithError(err).Error("service request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
