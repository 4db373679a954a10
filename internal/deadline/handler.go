package deadline

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lexdesk/lexdesk/internal/calendar"
	"github.com/lexdesk/lexdesk/internal/holiday"
	"github.com/lexdesk/lexdesk/internal/platform/httpx"
	"github.com/lexdesk/lexdesk/internal/sequence"
)

// Handler manages deadline endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers deadline routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/dashboard", h.dashboard)
	r.Get("/uid/{uid}", h.getByUID)
	r.Get("/{id}", h.get)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/extend", h.extend)
	r.Post("/{id}/miss", h.miss)
}

type jurisdictionForm struct {
	StateCode  string   `json:"state_code" validate:"omitempty,max=8"`
	CityName   string   `json:"city_name" validate:"omitempty,max=120"`
	CourtCodes []string `json:"court_codes" validate:"omitempty,dive,max=32"`
}

func (f jurisdictionForm) context() holiday.Context {
	return holiday.Context{StateCode: f.StateCode, CityName: f.CityName, CourtCodes: f.CourtCodes}
}

type createForm struct {
	Title        string           `json:"title" validate:"required,max=300"`
	ProcessRef   string           `json:"process_ref" validate:"omitempty,uuid"`
	StartDate    string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	DaysCount    int              `json:"days_count" validate:"min=0"`
	CountingType string           `json:"counting_type" validate:"required"`
	Priority     string           `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH CRITICAL"`
	ProtocolRef  string           `json:"protocol_ref" validate:"omitempty,max=120"`
	Jurisdiction jurisdictionForm `json:"jurisdiction"`
}

type deadlineResponse struct {
	ID              int64   `json:"id"`
	UID             string  `json:"uid"`
	ProcessRef      string  `json:"process_ref,omitempty"`
	Title           string  `json:"title"`
	StartDate       string  `json:"start_date"`
	DueDate         string  `json:"due_date"`
	OriginalDueDate *string `json:"original_due_date,omitempty"`
	DaysCount       int     `json:"days_count"`
	CountingType    string  `json:"counting_type"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CompletionNotes string  `json:"completion_notes,omitempty"`
	ProtocolRef     string  `json:"protocol_ref,omitempty"`
	Justification   string  `json:"justification,omitempty"`
	ExtensionReason string  `json:"extension_reason,omitempty"`
}

func toResponse(d Deadline) deadlineResponse {
	resp := deadlineResponse{
		ID:              d.ID,
		UID:             d.UID,
		Title:           d.Title,
		StartDate:       d.StartDate.Format(time.DateOnly),
		DueDate:         d.DueDate.Format(time.DateOnly),
		DaysCount:       d.DaysCount,
		CountingType:    string(d.Counting),
		Status:          string(d.Status),
		Priority:        string(d.Priority),
		CompletionNotes: d.CompletionNotes,
		ProtocolRef:     d.ProtocolRef,
		Justification:   d.Justification,
		ExtensionReason: d.ExtensionReason,
	}
	if d.ProcessRef.Valid {
		resp.ProcessRef = d.ProcessRef.UUID.String()
	}
	if d.OriginalDueDate != nil {
		orig := d.OriginalDueDate.Format(time.DateOnly)
		resp.OriginalDueDate = &orig
	}
	if d.CompletedAt != nil {
		done := d.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &done
	}
	return resp
}

func toResponses(rows []Deadline) []deadlineResponse {
	out := make([]deadlineResponse, 0, len(rows))
	for _, d := range rows {
		out = append(out, toResponse(d))
	}
	return out
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form createForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	start, err := time.ParseInLocation(time.DateOnly, form.StartDate, time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	counting, err := calendar.ParseCountingType(form.CountingType)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		Title:       form.Title,
		StartDate:   start,
		DaysCount:   form.DaysCount,
		Counting:    counting,
		Priority:    Priority(form.Priority),
		ProtocolRef: form.ProtocolRef,
	}
	if form.ProcessRef != "" {
		ref, err := uuid.Parse(form.ProcessRef)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "process_ref must be a UUID")
			return
		}
		input.ProcessRef = uuid.NullUUID{UUID: ref, Valid: true}
	}

	created, err := h.service.Create(r.Context(), input, nil, form.Jurisdiction.context())
	if err != nil {
		h.respondError(w, "create deadline", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*created))
}

type completeForm struct {
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
	ProtocolRef string `json:"protocol_ref" validate:"omitempty,max=120"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form completeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Complete(r.Context(), id, form.Notes, form.ProtocolRef)
	if err != nil {
		h.respondError(w, "complete deadline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

type extendForm struct {
	NewDueDate string `json:"new_due_date" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason" validate:"omitempty,max=2000"`
}

func (h *Handler) extend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form extendForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	newDue, err := time.ParseInLocation(time.DateOnly, form.NewDueDate, time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "new_due_date must be YYYY-MM-DD")
		return
	}
	updated, err := h.service.Extend(r.Context(), id, newDue, form.Reason)
	if err != nil {
		h.respondError(w, "extend deadline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

type missForm struct {
	Justification string `json:"justification" validate:"required,max=2000"`
}

func (h *Handler) miss(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form missForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.MarkAsMissed(r.Context(), id, form.Justification)
	if err != nil {
		h.respondError(w, "mark deadline missed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get deadline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*found))
}

func (h *Handler) getByUID(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if _, err := sequence.ParseNumber(uid); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid UID", err.Error())
		return
	}
	found, err := h.service.GetByUID(r.Context(), uid)
	if err != nil {
		h.respondError(w, "get deadline by uid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*found))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	window := 7
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "window_days must be an integer")
			return
		}
		window = parsed
	}

	board, err := h.service.BuildDashboard(r.Context(), asOf, window)
	if err != nil {
		h.respondError(w, "deadline dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"overdue":   toResponses(board.Overdue),
		"due_today": toResponses(board.DueToday),
		"due_soon":  toResponses(board.DueSoon),
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "deadline id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyTerminal):
		httpx.Problem(w, http.StatusConflict, "Already Terminal", err.Error())
	case errors.Is(err, ErrPastDueDate),
		errors.Is(err, ErrEmptyJustification),
		errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrInvalidWindow),
		errors.Is(err, calendar.ErrInvalidDaysCount),
		errors.Is(err, calendar.ErrInvalidCountingType),
		errors.Is(err, holiday.ErrMissingJurisdiction):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, sequence.ErrAllocationConflict):
		httpx.Problem(w, http.StatusConflict, "Allocation Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
