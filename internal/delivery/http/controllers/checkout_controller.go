package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campushub/internal/delivery/http/helpers"
	"campushub/internal/delivery/http/middleware"
	"campushub/internal/domain"
)

// CheckoutRequest is the request body for POST .../checkout. Members may omit
// email; guests must supply it.
type CheckoutRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Validate implements Validator.
func (c CheckoutRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Email != "" && !emailRegex.MatchString(strings.TrimSpace(c.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	return errs
}

// CompleteCheckoutRequest is the request body for POST .../checkout/complete.
type CompleteCheckoutRequest struct {
	CheckoutRequest
	OrderID string `json:"order_id"`
}

// Validate implements Validator.
func (c CompleteCheckoutRequest) Validate() []string {
	errs := c.CheckoutRequest.Validate()
	if strings.TrimSpace(c.OrderID) == "" {
		errs = append(errs, "order_id is required")
	}
	return errs
}

// OrderSuccessResponse is the success response envelope for POST .../checkout (201).
type OrderSuccessResponse struct {
	Data  *domain.Order     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CheckoutController runs the paid registration flow for members and guests.
type CheckoutController struct {
	Logger  *slog.Logger
	Service domain.PaymentService
	now     func() time.Time
}

func NewCheckoutController(logger *slog.Logger, svc domain.PaymentService) *CheckoutController {
	return &CheckoutController{
		Logger:  logger,
		Service: svc,
		now:     time.Now,
	}
}

// Checkout godoc
// @Summary Start a paid registration
// @Description Creates a gateway order for a fee-bearing event. An authenticated caller pays as a member, anyone else as a guest identified by email.
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param body body CheckoutRequest true "Payer details"
// @Success 201 {object} controllers.OrderSuccessResponse "data contains the gateway order"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/checkout [post]
func (c *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	checkout, ok := c.checkoutRequest(w, r, clubID, eventID, req)
	if !ok {
		return
	}
	order, err := c.Service.CreateCheckoutOrder(r.Context(), checkout)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, order)
}

// CompleteCheckout godoc
// @Summary Complete a paid registration
// @Description Confirms the order with the gateway and registers the payer. Only captured or paid orders for the full fee succeed.
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param body body CompleteCheckoutRequest true "Order id and payer details"
// @Success 201 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 402 {object} helpers.APIResponse "error.code: payment_not_completed"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/checkout/complete [post]
func (c *CheckoutController) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	var req CompleteCheckoutRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	checkout, ok := c.checkoutRequest(w, r, clubID, eventID, req.CheckoutRequest)
	if !ok {
		return
	}
	reg, err := c.Service.CompletePaidRegistration(r.Context(), checkout, strings.TrimSpace(req.OrderID))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// checkoutRequest picks the paying actor: the member on the token, otherwise a guest.
func (c *CheckoutController) checkoutRequest(w http.ResponseWriter, r *http.Request, clubID, eventID string, req CheckoutRequest) (domain.CheckoutRequest, bool) {
	contact := domain.Contact{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Phone: strings.TrimSpace(req.Phone),
	}
	out := domain.CheckoutRequest{ClubID: clubID, EventID: eventID, Contact: contact}

	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		out.Actor = domain.MemberActor(identity.UserID)
		if out.Contact.Email == "" {
			out.Contact.Email = identity.Email
		}
		return out, true
	}
	if contact.Email == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "email is required for guest checkout")
		return domain.CheckoutRequest{}, false
	}
	out.Actor = domain.GuestActor(contact.Email, c.now().UTC())
	return out, true
}
