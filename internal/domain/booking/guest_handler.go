package booking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tongarclub/jongque-sub001/internal/pkg/response"
	"github.com/tongarclub/jongque-sub001/internal/pkg/validator"
)

// GuestHandler handles the token-based guest booking endpoints. These routes
// are public and sit behind the rate limiter.
type GuestHandler struct {
	service *Service
	gateway *GuestGateway
}

// NewGuestHandler creates a new guest booking handler.
func NewGuestHandler(service *Service, gateway *GuestGateway) *GuestHandler {
	return &GuestHandler{service: service, gateway: gateway}
}

// Create handles POST /api/v1/guest/bookings
func (h *GuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGuestBookingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	details, err := h.service.CreateForGuest(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	// The lookup token is returned exactly once, at creation.
	resp := &GuestBookingResponse{
		BookingResponse: *h.service.Response(details),
		LookupToken:     details.GuestLookupToken.String,
	}
	response.Created(w, resp)
}

// Get handles GET /api/v1/guest/bookings/{token}
func (h *GuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.gateway.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, h.service.Response(details))
}

// Cancel handles POST /api/v1/guest/bookings/{token}/cancel
func (h *GuestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelBookingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	details, err := h.gateway.Cancel(r.Context(), chi.URLParam(r, "token"), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, h.service.Response(details))
}
