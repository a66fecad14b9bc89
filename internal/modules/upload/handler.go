package upload

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/validation"
)

// Handler exposes the service import endpoints.
type Handler struct {
	service      Service
	requireAdmin func(http.Handler) http.Handler
	maxUpload    int64
}

// NewHandler builds the upload handler. requireAdmin guards the validate and
// commit routes and may be nil.
func NewHandler(service Service, requireAdmin func(http.Handler) http.Handler, maxUpload int64) *Handler {
	return &Handler{service: service, requireAdmin: requireAdmin, maxUpload: maxUpload}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/services/upload", func(r chi.Router) {
		r.Get("/template", h.template)

		r.Group(func(r chi.Router) {
			if h.requireAdmin != nil {
				r.Use(h.requireAdmin)
			}
			r.Post("/", h.validate)
			r.Post("/create", h.create)
		})
	})
}

type summary struct {
	TotalServices int `json:"totalServices"`
	TotalRoutes   int `json:"totalRoutes"`
}

type validateResponse struct {
	Success  bool            `json:"success"`
	Data     []ParsedService `json:"data"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings"`
	Summary  summary         `json:"summary"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	report, err := h.service.ValidateFile(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if !report.IsValid {
		status = http.StatusBadRequest
	}
	respond(w, status, validateResponse{
		Success:  report.IsValid,
		Data:     report.Services,
		Errors:   report.Errors,
		Warnings: report.Warnings,
		Summary: summary{
			TotalServices: len(report.Services),
			TotalRoutes:   report.TotalRoutes(),
		},
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var services []ParsedService
	if err := json.NewDecoder(r.Body).Decode(&services); err != nil {
		respondError(w, http.StatusBadRequest, ErrNoServices.Error())
		return
	}
	resp, err := h.service.Commit(r.Context(), services)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

func (h *Handler) template(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.service.Template(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", tpl.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+tpl.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(tpl.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(tpl.Data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrMalformedFile),
		errors.Is(err, ErrNoServices), validation.IsInvalid(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).WithError(err).Error("service upload failed")
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
