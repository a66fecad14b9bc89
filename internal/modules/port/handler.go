package port

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/validation"
)

// Handler exposes port HTTP endpoints.
type Handler struct {
	service      Service
	requireAdmin func(http.Handler) http.Handler
	maxUpload    int64
}

// NewHandler builds the port handler. requireAdmin guards mutating routes and
// may be nil.
func NewHandler(service Service, requireAdmin func(http.Handler) http.Handler, maxUpload int64) *Handler {
	return &Handler{service: service, requireAdmin: requireAdmin, maxUpload: maxUpload}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/ports", func(r chi.Router) {
		r.Get("/", h.listPorts)
		r.Get("/search", h.searchPorts)
		r.Get("/{id}", h.getPort)

		r.Group(func(r chi.Router) {
			if h.requireAdmin != nil {
				r.Use(h.requireAdmin)
			}
			r.Post("/", h.createPort)
			r.Post("/bulk", h.bulkUpload)
			r.Put("/{id}", h.updatePort)
			r.Delete("/{id}", h.deletePort)
		})
	})
}

func (h *Handler) listPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.service.ListPorts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, ports)
}

func (h *Handler) searchPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.service.SearchPorts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, ports)
}

func (h *Handler) getPort(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPort(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) createPort(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.service.CreatePort(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) updatePort(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.service.UpdatePort(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) deletePort(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePort(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "Port deleted successfully"})
}

// bulkUpload accepts either a JSON array body or a multipart "file" field
// holding a .json or .csv document.
func (h *Handler) bulkUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var (
		entries []PortRequest
		err     error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			respondError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			respondError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}
		entries, err = ParseBulkFile(header.Filename, data)
	} else {
		data, rerr := io.ReadAll(r.Body)
		if rerr != nil {
			respondError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		entries, err = DecodeBulkJSON(data)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond(w, http.StatusOK, h.service.BulkCreate(r.Context(), entries))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrDuplicateUnloc):
		respondError(w, http.StatusConflict, ErrDuplicateUnloc.Error())
	case errors.Is(err, ErrInUse):
		respondError(w, http.StatusConflict, ErrInUse.Error())
	case errors.Is(err, ErrUnsupportedBulkFile), errors.Is(err, ErrMalformedBulkFile), validation.IsInvalid(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).WithError(err).Error("port request failed")
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
