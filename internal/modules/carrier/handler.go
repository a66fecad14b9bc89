package carrier

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/validation"
)

// Handler exposes carrier HTTP endpoints.
type Handler struct {
	service      Service
	requireAdmin func(http.Handler) http.Handler
}

func NewHandler(service Service, requireAdmin func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, requireAdmin: requireAdmin}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/carriers", func(r chi.Router) {
		r.Get("/", h.listCarriers)
		r.Get("/{id}", h.getCarrier)

		r.Group(func(r chi.Router) {
			if h.requireAdmin != nil {
				r.Use(h.requireAdmin)
			}
			r.Post("/", h.createCarrier)
			r.Put("/{id}", h.updateCarrier)
			r.Delete("/{id}", h.deleteCarrier)
		})
	})
}

func (h *Handler) listCarriers(w http.ResponseWriter, r *http.Request) {
	carriers, err := h.service.ListCarriers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, carriers)
}

func (h *Handler) getCarrier(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCarrier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) createCarrier(w http.ResponseWriter, r *http.Request) {
	var req CarrierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.service.CreateCarrier(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, c)
}

func (h *Handler) updateCarrier(w http.ResponseWriter, r *http.Request) {
	var req CarrierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.service.UpdateCarrier(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) deleteCarrier(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCarrier(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "Carrier deleted successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrDuplicateName):
		respondError(w, http.StatusConflict, ErrDuplicateName.Error())
	case validation.IsInvalid(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).WithError(err).Error("carrier request failed")
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
