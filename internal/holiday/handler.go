package holiday

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lexdesk/lexdesk/internal/platform/httpx"
)

// Handler manages holiday administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers holiday routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/deactivate", h.deactivate)
}

type holidayForm struct {
	Name      string `json:"name" validate:"required,max=200"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Scope     string `json:"scope" validate:"required,oneof=NATIONAL STATE MUNICIPAL COURT"`
	StateCode string `json:"state_code" validate:"omitempty,max=8"`
	CityName  string `json:"city_name" validate:"omitempty,max=120"`
	CourtCode string `json:"court_code" validate:"omitempty,max=32"`
	Recurring bool   `json:"recurring"`
	Active    *bool  `json:"active"`
}

type holidayResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Scope     string `json:"scope"`
	StateCode string `json:"state_code,omitempty"`
	CityName  string `json:"city_name,omitempty"`
	CourtCode string `json:"court_code,omitempty"`
	Recurring bool   `json:"recurring"`
	Active    bool   `json:"active"`
}

func toResponse(h Holiday) holidayResponse {
	return holidayResponse{
		ID:        h.ID,
		Name:      h.Name,
		Date:      h.Date.Format(time.DateOnly),
		Scope:     string(h.Scope),
		StateCode: h.StateCode,
		CityName:  h.CityName,
		CourtCode: h.CourtCode,
		Recurring: h.Recurring,
		Active:    h.Active,
	}
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (*Holiday, bool) {
	var form holidayForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return nil, false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return nil, false
	}
	date, err := time.ParseInLocation(time.DateOnly, form.Date, time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "date must be YYYY-MM-DD")
		return nil, false
	}
	active := true
	if form.Active != nil {
		active = *form.Active
	}
	holiday := Holiday{
		Name:      form.Name,
		Date:      date,
		Scope:     Scope(form.Scope),
		StateCode: form.StateCode,
		CityName:  form.CityName,
		CourtCode: form.CourtCode,
		Recurring: form.Recurring,
		Active:    active,
	}
	if err := holiday.Validate(); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return nil, false
	}
	return &holiday, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), *input)
	if err != nil {
		h.respondError(w, "create holiday", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "holiday id must be numeric")
		return
	}
	input, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	input.ID = id
	updated, err := h.service.Update(r.Context(), *input)
	if err != nil {
		h.respondError(w, "update holiday", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "holiday id must be numeric")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.respondError(w, "deactivate holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "holiday id must be numeric")
		return
	}
	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get holiday", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*found))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	holidays, err := h.service.List(r.Context(), includeInactive)
	if err != nil {
		h.respondError(w, "list holidays", err)
		return
	}
	out := make([]holidayResponse, 0, len(holidays))
	for _, row := range holidays {
		out = append(out, toResponse(row))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrMissingStateCode),
		errors.Is(err, ErrMissingCityName),
		errors.Is(err, ErrMissingCourtCode):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
