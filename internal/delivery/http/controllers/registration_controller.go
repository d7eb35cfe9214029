package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"campushub/internal/delivery/http/helpers"
	"campushub/internal/delivery/http/middleware"
	"campushub/internal/domain"
)

// maxLookupEvents bounds POST /me/registrations/lookup.
const maxLookupEvents = 100

// RegisterRequest is the request body for a member registering for a free event.
// Email defaults to the address on the caller's token.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Validate implements Validator.
func (r RegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if r.Email != "" && !emailRegex.MatchString(strings.TrimSpace(r.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	return errs
}

// GuestRegisterRequest is the request body for POST .../guest-registrations.
type GuestRegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Institution string `json:"institution"`
}

// Validate implements Validator.
func (r GuestRegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if r.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(strings.TrimSpace(r.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	return errs
}

// RegistrationCreatedResponse is the data payload for a new registration (201).
type RegistrationCreatedResponse struct {
	RegistrationID string           `json:"registration_id"`
	Partition      domain.Partition `json:"partition"`
	ActorID        string           `json:"actor_id"`
}

// RegistrationCreatedSuccessResponse is the success response envelope for registration endpoints (201).
type RegistrationCreatedSuccessResponse struct {
	Data  RegistrationCreatedResponse `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// RegistrationSuccessResponse is the success response envelope for endpoints returning one registration.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// RegistrationListSuccessResponse is the success response envelope for the registration list.
type RegistrationListSuccessResponse struct {
	Data  []*domain.Registration `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// RegistrationStatsSuccessResponse is the success response envelope for registration stats.
type RegistrationStatsSuccessResponse struct {
	Data  *domain.RegistrationStats `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// RegistrationCountResponse is the data payload for the public member count.
type RegistrationCountResponse struct {
	Count int `json:"count"`
}

// RegistrationCountSuccessResponse is the success response envelope for the public member count.
type RegistrationCountSuccessResponse struct {
	Data  RegistrationCountResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// RegistrationStatusResponse is the data payload for the is-registered check.
type RegistrationStatusResponse struct {
	ActorID    string `json:"actor_id"`
	Registered bool   `json:"registered"`
}

// RegistrationStatusSuccessResponse is the success response envelope for the is-registered check.
type RegistrationStatusSuccessResponse struct {
	Data  RegistrationStatusResponse `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// DeleteRegistrationResponse is the data payload for DELETE on a registration (200).
type DeleteRegistrationResponse struct {
	Status string `json:"status"`
}

// DeleteRegistrationSuccessResponse is the success response envelope for DELETE on a registration (200).
type DeleteRegistrationSuccessResponse struct {
	Data  DeleteRegistrationResponse `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

type RegistrationController struct {
	Logger        *slog.Logger
	Registrations domain.RegistrationService
	Events        domain.EventService
}

func NewRegistrationController(logger *slog.Logger, registrations domain.RegistrationService, events domain.EventService) *RegistrationController {
	return &RegistrationController{
		Logger:        logger,
		Registrations: registrations,
		Events:        events,
	}
}

// Register godoc
// @Summary Register for a free event
// @Description Registers the authenticated member. Fee-bearing events must go through checkout and fail with payment_required.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param body body RegisterRequest true "Contact details"
// @Success 201 {object} controllers.RegistrationCreatedSuccessResponse "data contains the registration id"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered or payment_required"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	contact := domain.Contact{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	}
	if contact.Email == "" {
		contact.Email = identity.Email
	}

	event, err := c.Events.GetEvent(r.Context(), clubID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	actor := domain.MemberActor(identity.UserID)
	id, err := c.Registrations.RegisterForEvent(r.Context(), clubID, eventID, actor, contact, event.Info())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, RegistrationCreatedResponse{
		RegistrationID: id,
		Partition:      domain.PartitionMember,
		ActorID:        actor.ID,
	})
}

// RegisterGuest godoc
// @Summary Register a guest for a free event
// @Description Registers an unauthenticated guest. The guest id is derived from the email, so one email registers once per event. Guest data is kept for three months.
// @Tags registrations
// @Accept json
// @Produce json
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param body body GuestRegisterRequest true "Guest details"
// @Success 201 {object} controllers.RegistrationCreatedSuccessResponse "data contains the registration id"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered or payment_required"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/guest-registrations [post]
func (c *RegistrationController) RegisterGuest(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	var req GuestRegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Events.GetEvent(r.Context(), clubID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	guest := domain.GuestProfile{
		Contact: domain.Contact{
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
		},
		Institution: strings.TrimSpace(req.Institution),
	}
	id, err := c.Registrations.RegisterGuestForEvent(r.Context(), clubID, eventID, guest, event.Info())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, RegistrationCreatedResponse{
		RegistrationID: id,
		Partition:      domain.PartitionGuest,
		ActorID:        domain.GuestActorID(guest.Email),
	})
}

// RegistrationStatus godoc
// @Summary Check whether an actor is registered
// @Description Reports whether the actor holds an active registration. With no query the caller's own status is returned. email= checks a guest. actor= accepts a guest id from anyone, or a member id from that member or an admin.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param actor query string false "Actor id (member user id or guest_ id)"
// @Param email query string false "Guest email"
// @Success 200 {object} controllers.RegistrationStatusSuccessResponse "data contains registered flag"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/registrations/status [get]
func (c *RegistrationController) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	actor, ok := c.statusActor(w, r)
	if !ok {
		return
	}
	registered, err := c.Registrations.IsRegistered(r.Context(), clubID, eventID, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RegistrationStatusResponse{ActorID: actor.ID, Registered: registered})
}

// statusActor resolves whose status is asked for and whether the caller may see it.
func (c *RegistrationController) statusActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	q := r.URL.Query()
	identity, authenticated := middleware.IdentityFromContext(r.Context())

	if raw := strings.TrimSpace(q.Get("actor")); raw != "" {
		actor, err := domain.ParseActorID(raw)
		if err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err)
			return domain.Actor{}, false
		}
		if actor.IsGuest() {
			return actor, true
		}
		if !authenticated {
			helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
			return domain.Actor{}, false
		}
		if actor.ID != identity.UserID && !identity.HasRole(domain.RoleAdmin) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "cannot read another member's registration")
			return domain.Actor{}, false
		}
		return actor, true
	}
	if email := strings.TrimSpace(q.Get("email")); email != "" {
		if !emailRegex.MatchString(email) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "email must be a valid email address")
			return domain.Actor{}, false
		}
		return domain.Actor{Kind: domain.ActorGuest, ID: domain.GuestActorID(email)}, true
	}
	if !authenticated {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.Actor{}, false
	}
	return domain.MemberActor(identity.UserID), true
}

// ListRegistrations godoc
// @Summary List an event's registrations
// @Description Returns member registrations followed by guest registrations. Requires the admin role.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationListSuccessResponse "data contains registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/registrations [get]
func (c *RegistrationController) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	regs, err := c.Registrations.GetEventRegistrations(r.Context(), clubID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

// RegistrationStats godoc
// @Summary Registration statistics
// @Description Totals over members and guests, by status and check-in. Requires the admin role.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationStatsSuccessResponse "data contains stats"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /clubs/{clubID}/events/{eventID}/registrations/stats [get]
func (c *RegistrationController) RegistrationStats(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	stats, err := c.Registrations.GetEventRegistrationStats(r.Context(), clubID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// RegistrationCount godoc
// @Summary Public registration count
// @Description Number of member registrations shown on listing pages. Guests are not included. Returns 0 when the store is unavailable.
// @Tags registrations
// @Produce json
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationCountSuccessResponse "data contains count"
// @Router /clubs/{clubID}/events/{eventID}/registrations/count [get]
func (c *RegistrationController) RegistrationCount(w http.ResponseWriter, r *http.Request) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return
	}
	n := c.Registrations.GetEventRegistrationCount(r.Context(), clubID, eventID)
	helpers.WriteJSONSuccess(w, http.StatusOK, RegistrationCountResponse{Count: n})
}

// GetRegistration godoc
// @Summary Get a registration
// @Description Requires the admin role.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param partition path string true "member or guest"
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /clubs/{clubID}/events/{eventID}/registrations/{partition}/{registrationID} [get]
func (c *RegistrationController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	ref, ok := registrationPath(w, r)
	if !ok {
		return
	}
	reg, err := c.Registrations.GetRegistration(r.Context(), ref)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// CheckIn godoc
// @Summary Check in a registration
// @Description Marks the attendee as checked in. Cancelled registrations cannot be checked in. Requires the admin role.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param partition path string true "member or guest"
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /clubs/{clubID}/events/{eventID}/registrations/{partition}/{registrationID}/check-in [post]
func (c *RegistrationController) CheckIn(w http.ResponseWriter, r *http.Request) {
	ref, ok := registrationPath(w, r)
	if !ok {
		return
	}
	reg, err := c.Registrations.CheckIn(r.Context(), ref)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Cancel godoc
// @Summary Cancel a registration
// @Description The registering member or an admin may cancel. The actor can register again afterwards.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param partition path string true "member or guest"
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /clubs/{clubID}/events/{eventID}/registrations/{partition}/{registrationID}/cancel [post]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	ref, ok := registrationPath(w, r)
	if !ok {
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if !identity.HasRole(domain.RoleAdmin) {
		existing, err := c.Registrations.GetRegistration(r.Context(), ref)
		if err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err)
			return
		}
		if existing.Partition != domain.PartitionMember || existing.ActorID != identity.UserID {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "only the registrant or an admin can cancel")
			return
		}
	}
	reg, err := c.Registrations.Cancel(r.Context(), ref)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// UpdateStatusRequest is the request body for PATCH .../status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements Validator.
func (u UpdateStatusRequest) Validate() []string {
	if _, err := domain.ParseRegistrationStatus(u.Status); err != nil {
		return []string{"status must be one of pending, confirmed, cancelled"}
	}
	return nil
}

// UpdateStatus godoc
// @Summary Set a registration's status
// @Description Requires the admin role.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param partition path string true "member or guest"
// @Param registrationID path string true "Registration ID"
// @Param body body UpdateStatusRequest true "New status"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered"
// @Router /clubs/{clubID}/events/{eventID}/registrations/{partition}/{registrationID}/status [patch]
func (c *RegistrationController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := registrationPath(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Registrations.UpdateStatus(r.Context(), ref, domain.RegistrationStatus(req.Status))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// UpdatePaymentRequest is the request body for PATCH .../payment.
type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
	PaymentID     string `json:"payment_id"`
}

// Validate implements Validator.
func (u UpdatePaymentRequest) Validate() []string {
	var errs []string
	status, err := domain.ParsePaymentStatus(u.PaymentStatus)
	if err != nil {
		errs = append(errs, "payment_status must be one of pending, paid, refunded")
	}
	if status == domain.PaymentPaid && strings.TrimSpace(u.PaymentID) == "" {
		errs = append(errs, fmt.Sprintf("payment_id is required when payment_status is %s", domain.PaymentPaid))
	}
	return errs
}

// UpdatePayment godoc
// @Summary Set a registration's payment status
// @Description Setting paid also confirms the registration in the same write. Requires the admin role.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param partition path string true "member or guest"
// @Param registrationID path string true "Registration ID"
// @Param body body UpdatePaymentRequest true "Payment status"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /clubs/{clubID}/events/{eventID}/registrations/{partition}/{registrationID}/payment [patch]
func (c *RegistrationController) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ref, ok := registrationPath(w, r)
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Registrations.UpdatePaymentStatus(r.Context(), ref, domain.PaymentStatus(req.PaymentStatus), strings.TrimSpace(req.PaymentID))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// DeleteRegistration godoc
// @Summary Delete a registration
// @Description Permanently removes the registration. Requires the admin role.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param clubID path string true "Club ID"
// @Param eventID path string true "Event ID"
// @Param partition path string true "member or guest"
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.DeleteRegistrationSuccessResponse "data contains status"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /clubs/{clubID}/events/{eventID}/registrations/{partition}/{registrationID} [delete]
func (c *RegistrationController) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	ref, ok := registrationPath(w, r)
	if !ok {
		return
	}
	if err := c.Registrations.Delete(r.Context(), ref); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteRegistrationResponse{Status: "deleted"})
}

// LookupRequest is the request body for POST /me/registrations/lookup.
type LookupRequest struct {
	Events []domain.EventKey `json:"events"`
}

// Validate implements Validator.
func (l LookupRequest) Validate() []string {
	var errs []string
	if len(l.Events) == 0 {
		errs = append(errs, "events is required")
	}
	if len(l.Events) > maxLookupEvents {
		errs = append(errs, fmt.Sprintf("at most %d events per lookup", maxLookupEvents))
	}
	for i, e := range l.Events {
		if strings.TrimSpace(e.ClubID) == "" || strings.TrimSpace(e.EventID) == "" {
			errs = append(errs, fmt.Sprintf("events[%d] needs club_id and event_id", i))
		}
	}
	return errs
}

// LookupResponse is the data payload for POST /me/registrations/lookup.
type LookupResponse struct {
	RegisteredEventIDs []string `json:"registered_event_ids"`
}

// LookupSuccessResponse is the success response envelope for POST /me/registrations/lookup.
type LookupSuccessResponse struct {
	Data  LookupResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// LookupMyRegistrations godoc
// @Summary Which of these events am I registered for
// @Description Returns the ids of the given events in which the caller holds an active registration, in input order.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body LookupRequest true "Events to check"
// @Success 200 {object} controllers.LookupSuccessResponse "data contains registered event ids"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /me/registrations/lookup [post]
func (c *RegistrationController) LookupMyRegistrations(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ids, err := c.Registrations.BatchCheckUserRegistrations(r.Context(), domain.MemberActor(identity.UserID), req.Events)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LookupResponse{RegisteredEventIDs: ids})
}
