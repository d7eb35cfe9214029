package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campushub/internal/delivery/http/helpers"
	"campushub/internal/delivery/http/middleware"
	"campushub/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	student = domain.Identity{UserID: "user-123", Email: "s@college.edu", Roles: []string{domain.RoleStudent}}
	admin   = domain.Identity{UserID: "admin-1", Email: "a@college.edu", Roles: []string{domain.RoleStudent, domain.RoleAdmin}}
)

// serve routes one request through a ServeMux pattern so PathValue works.
// identity may be nil for anonymous calls.
func serve(t *testing.T, pattern string, h http.HandlerFunc, method, target, body string, identity *domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		req = req.WithContext(middleware.SetIdentity(req.Context(), *identity))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// decodeEnvelope decodes the response envelope and, when out is non-nil, its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if out != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return envelope
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	event       *domain.Event
	err         error
	lastCreate  *domain.Event
	lastClubID  string
	lastEventID string
	lastUpdate  domain.EventUpdate
}

func (f *fakeEventService) CreateEvent(ctx context.Context, e *domain.Event) error {
	f.lastCreate = e
	if f.err != nil {
		return f.err
	}
	e.ID = "evt-created"
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, clubID, eventID string) (*domain.Event, error) {
	f.lastClubID, f.lastEventID = clubID, eventID
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, clubID, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastClubID, f.lastEventID, f.lastUpdate = clubID, eventID, upd
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	err          error
	registerID   string
	registered   bool
	reg          *domain.Registration
	regs         []*domain.Registration
	stats        *domain.RegistrationStats
	count        int
	lookupIDs    []string
	lastActor    domain.Actor
	lastContact  domain.Contact
	lastGuest    domain.GuestProfile
	lastInfo     domain.EventInfo
	lastRef      domain.RegistrationRef
	lastStatus   domain.RegistrationStatus
	lastPayment  domain.PaymentStatus
	lastPayID    string
	lastEvents   []domain.EventKey
	cancelCalled bool
	deleteCalled bool
}

func (f *fakeRegistrationService) IsRegistered(ctx context.Context, clubID, eventID string, actor domain.Actor) (bool, error) {
	f.lastActor = actor
	return f.registered, f.err
}

func (f *fakeRegistrationService) RegisterForEvent(ctx context.Context, clubID, eventID string, actor domain.Actor, contact domain.Contact, info domain.EventInfo) (string, error) {
	f.lastActor, f.lastContact, f.lastInfo = actor, contact, info
	if f.err != nil {
		return "", f.err
	}
	return f.registerID, nil
}

func (f *fakeRegistrationService) RegisterForPaidEvent(ctx context.Context, clubID, eventID string, actor domain.Actor, contact domain.Contact, info domain.EventInfo, paymentID string) (string, error) {
	f.lastActor, f.lastContact, f.lastInfo, f.lastPayID = actor, contact, info, paymentID
	return f.registerID, f.err
}

func (f *fakeRegistrationService) RegisterGuestForEvent(ctx context.Context, clubID, eventID string, guest domain.GuestProfile, info domain.EventInfo) (string, error) {
	f.lastGuest, f.lastInfo = guest, info
	if f.err != nil {
		return "", f.err
	}
	return f.registerID, nil
}

func (f *fakeRegistrationService) GetRegistration(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	f.lastRef = ref
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) CheckIn(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	f.lastRef = ref
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) Cancel(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	f.lastRef = ref
	f.cancelCalled = true
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) UpdateStatus(ctx context.Context, ref domain.RegistrationRef, status domain.RegistrationStatus) (*domain.Registration, error) {
	f.lastRef, f.lastStatus = ref, status
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) UpdatePaymentStatus(ctx context.Context, ref domain.RegistrationRef, status domain.PaymentStatus, paymentID string) (*domain.Registration, error) {
	f.lastRef, f.lastPayment, f.lastPayID = ref, status, paymentID
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) Delete(ctx context.Context, ref domain.RegistrationRef) error {
	f.lastRef = ref
	f.deleteCalled = true
	return f.err
}

func (f *fakeRegistrationService) StoreEventPayment(ctx context.Context, payment *domain.PaymentRecord) {}

func (f *fakeRegistrationService) GetEventRegistrations(ctx context.Context, clubID, eventID string) ([]*domain.Registration, error) {
	return f.regs, f.err
}

func (f *fakeRegistrationService) GetEventRegistrationStats(ctx context.Context, clubID, eventID string) (*domain.RegistrationStats, error) {
	return f.stats, f.err
}

func (f *fakeRegistrationService) GetEventRegistrationCount(ctx context.Context, clubID, eventID string) int {
	return f.count
}

func (f *fakeRegistrationService) BatchCheckUserRegistrations(ctx context.Context, actor domain.Actor, events []domain.EventKey) ([]string, error) {
	f.lastActor, f.lastEvents = actor, events
	return f.lookupIDs, f.err
}

// fakePaymentService implements domain.PaymentService for handler tests.
type fakePaymentService struct {
	err         error
	order       *domain.Order
	reg         *domain.Registration
	lastReq     domain.CheckoutRequest
	lastOrderID string
}

func (f *fakePaymentService) CreateCheckoutOrder(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakePaymentService) CompletePaidRegistration(ctx context.Context, req domain.CheckoutRequest, orderID string) (*domain.Registration, error) {
	f.lastReq, f.lastOrderID = req, orderID
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

// fakeAccountService implements domain.AccountService for handler tests.
type fakeAccountService struct {
	err       error
	token     string
	user      *domain.User
	lastEmail string
	lastCode  string
	lastID    string
}

func (f *fakeAccountService) RequestVerificationCode(ctx context.Context, email string) error {
	f.lastEmail = email
	return f.err
}

func (f *fakeAccountService) VerifyCode(ctx context.Context, email, code string) (string, *domain.User, error) {
	f.lastEmail, f.lastCode = email, code
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeAccountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	f.lastID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}
