package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tongarclub/jongque-sub001/internal/middleware"
	"github.com/tongarclub/jongque-sub001/internal/pkg/jwt"
	"github.com/tongarclub/jongque-sub001/internal/pkg/response"
	"github.com/tongarclub/jongque-sub001/internal/pkg/validator"
)

// Handler handles booking HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new booking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func actorFromContext(r *http.Request) Actor {
	ctx := r.Context()
	actor := Actor{CustomerID: middleware.GetUserID(ctx)}
	if middleware.GetRole(ctx) == jwt.RoleOperator {
		actor.Operator = true
		actor.BusinessID = middleware.GetBusinessID(ctx)
		actor.CustomerID = uuid.Nil
	}
	return actor
}

// Create handles POST /api/v1/bookings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "User not authenticated")
		return
	}

	var req CreateBookingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	details, err := h.service.CreateForCustomer(r.Context(), userID, &req)
	if err != nil {
		respondError(w, err)
		return
	}

	response.Created(w, h.service.Response(details))
}

// GetByID handles GET /api/v1/bookings/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	details, err := h.service.GetBooking(r.Context(), id, actorFromContext(r))
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, h.service.Response(details))
}

// List handles GET /api/v1/bookings
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := &ListFilter{}

	if v := r.URL.Query().Get("business_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid business_id")
			return
		}
		filter.BusinessID = &id
	}
	if v := r.URL.Query().Get("date"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(w, "Invalid date, must be YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := Status(v)
		filter.Status = &status
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	bookings, total, err := h.service.ListBookings(r.Context(), actorFromContext(r), filter, &Pagination{Page: page, Limit: limit})
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]*BookingResponse, 0, len(bookings))
	for _, d := range bookings {
		items = append(items, h.service.Response(d))
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, items, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// Reschedule handles PATCH /api/v1/bookings/{id}
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var req RescheduleBookingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	details, err := h.service.RescheduleBooking(r.Context(), id, &req, actorFromContext(r))
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, h.service.Response(details))
}

// Cancel handles POST /api/v1/bookings/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var req CancelBookingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	details, err := h.service.CancelBooking(r.Context(), id, req.Reason, actorFromContext(r))
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, h.service.Response(details))
}

// CheckIn handles POST /api/v1/bookings/{id}/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.CheckIn)
}

// Start handles POST /api/v1/bookings/{id}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.StartService)
}

// Complete handles POST /api/v1/bookings/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.CompleteService)
}

// NoShow handles POST /api/v1/bookings/{id}/no-show
func (h *Handler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.MarkNoShow)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID, actor Actor) (*Details, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	details, err := op(r.Context(), id, actorFromContext(r))
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, h.service.Response(details))
}

// respondError maps domain errors onto HTTP responses.
func respondError(w http.ResponseWriter, err error) {
	var verr ValidationErrors
	if errors.As(err, &verr) {
		response.ValidationError(w, verr)
		return
	}

	switch {
	case errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrBusinessNotFound),
		errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrStaffNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrSlotUnavailable):
		response.Conflict(w, "SLOT_UNAVAILABLE", err.Error())
	case errors.Is(err, ErrDuplicateBooking):
		response.Conflict(w, "DUPLICATE_BOOKING", err.Error())
	case errors.Is(err, ErrAlreadyCancelled):
		response.Conflict(w, "ALREADY_CANCELLED", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(w, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, ErrConcurrentUpdate):
		response.Conflict(w, "CONCURRENT_UPDATE", err.Error())
	case errors.Is(err, ErrPastDate),
		errors.Is(err, ErrPastBooking),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrBusinessInactive),
		errors.Is(err, ErrServiceInactive),
		errors.Is(err, ErrStaffInactive):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotBookingOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrActionNotAllowed):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrExhaustedRetries):
		response.ServiceUnavailable(w, err.Error())
	default:
		response.InternalError(w)
	}
}
