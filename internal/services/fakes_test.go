package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"campushub/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedNow is the clock used by service tests.
var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeRegistrationRepo implements domain.RegistrationRepository in memory. Like the
// unique indexes, it rejects a second active row for the same actor and a second
// row carrying the same payment id.
type fakeRegistrationRepo struct {
	mu     sync.Mutex
	rows   map[domain.Partition]map[string]*domain.Registration
	nextID int

	createErr error
	listErr   error
	countErr  error
	updateErr error
	// failCreates makes the first n Create calls fail with domain.ErrUnavailable.
	failCreates int

	createCalls int
	listCalls   int
	countCalls  int
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{
		rows: map[domain.Partition]map[string]*domain.Registration{
			domain.PartitionMember: {},
			domain.PartitionGuest:  {},
		},
	}
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreates > 0 {
		f.failCreates--
		return domain.ErrUnavailable
	}
	if f.createErr != nil {
		return f.createErr
	}
	for _, r := range f.rows[reg.Partition] {
		if reg.PaymentID != "" && r.PaymentID == reg.PaymentID {
			return domain.ErrPaymentAlreadyUsed
		}
		if r.ClubID == reg.ClubID && r.EventID == reg.EventID && r.ActorID == reg.ActorID && r.IsActive() {
			return domain.ErrAlreadyRegistered
		}
	}
	f.nextID++
	reg.ID = fmt.Sprintf("reg-%d", f.nextID)
	cp := *reg
	f.rows[reg.Partition][reg.ID] = &cp
	return nil
}

func (f *fakeRegistrationRepo) put(reg *domain.Registration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *reg
	f.rows[reg.Partition][reg.ID] = &cp
}

func (f *fakeRegistrationRepo) get(ref domain.RegistrationRef) *domain.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[ref.Partition][ref.ID]
	if !ok || r.ClubID != ref.ClubID || r.EventID != ref.EventID {
		return nil
	}
	return r
}

func (f *fakeRegistrationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[domain.PartitionMember]) + len(f.rows[domain.PartitionGuest])
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	r := f.get(ref)
	if r == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRegistrationRepo) ListByActor(ctx context.Context, p domain.Partition, clubID, eventID, actorID string) ([]*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Registration
	for _, r := range f.rows[p] {
		if r.ClubID == clubID && r.EventID == eventID && r.ActorID == actorID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) ListByEvent(ctx context.Context, p domain.Partition, clubID, eventID string) ([]*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Registration
	for _, r := range f.rows[p] {
		if r.ClubID == clubID && r.EventID == eventID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) CountByEvent(ctx context.Context, p domain.Partition, clubID, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, r := range f.rows[p] {
		if r.ClubID == clubID && r.EventID == eventID && r.IsActive() {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistrationRepo) UpdateStatus(ctx context.Context, ref domain.RegistrationRef, status domain.RegistrationStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	r := f.get(ref)
	if r == nil {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Status = status
	return nil
}

func (f *fakeRegistrationRepo) UpdatePaymentStatus(ctx context.Context, ref domain.RegistrationRef, status domain.PaymentStatus, paymentID string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	r := f.get(ref)
	if r == nil {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.PaymentStatus = &status
	if paymentID != "" {
		r.PaymentID = paymentID
	}
	if status == domain.PaymentPaid {
		r.Status = domain.StatusConfirmed
	}
	return nil
}

func (f *fakeRegistrationRepo) CheckIn(ctx context.Context, ref domain.RegistrationRef, at time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	r := f.get(ref)
	if r == nil {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.CheckInStatus = domain.CheckedIn
	r.CheckedInAt = &at
	return nil
}

func (f *fakeRegistrationRepo) Delete(ctx context.Context, ref domain.RegistrationRef) error {
	if f.get(ref) == nil {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows[ref.Partition], ref.ID)
	return nil
}

func (f *fakeRegistrationRepo) DeleteExpiredGuests(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rows[domain.PartitionGuest] {
		if r.ExpiresAt != nil && r.ExpiresAt.Before(cutoff) {
			delete(f.rows[domain.PartitionGuest], id)
			n++
		}
	}
	return n, nil
}

// fakePaymentRepo implements domain.PaymentRepository keyed by payment id.
type fakePaymentRepo struct {
	mu      sync.Mutex
	records map[string]domain.PaymentRecord
	err     error
	calls   int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: make(map[string]domain.PaymentRecord)}
}

func (f *fakePaymentRepo) Upsert(ctx context.Context, p *domain.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.records[p.PaymentID] = *p
	return nil
}

// fakeNotificationRepo implements domain.GuestNotificationRepository.
type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []*domain.GuestNotification
	swept   int64
	err     error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.GuestNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var kept []*domain.GuestNotification
	var n int64
	for _, c := range f.created {
		if c.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.created = kept
	f.swept += n
	return n, nil
}

// fakeEmailService implements domain.EmailService.
type fakeEmailService struct {
	mu            sync.Mutex
	codes         []*domain.VerificationCodeEmailData
	confirmations []*domain.RegistrationEmailData
	err           error
}

func (f *fakeEmailService) SendVerificationCode(ctx context.Context, data *domain.VerificationCodeEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, data)
	return f.err
}

func (f *fakeEmailService) SendRegistrationConfirmation(ctx context.Context, data *domain.RegistrationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, data)
	return f.err
}

// fakePublisher implements domain.RegistrationEventPublisher.
type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, reg *domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, routingKey)
	return f.err
}

// fakeCountCache implements domain.RegistrationCountCache with a plain map.
type fakeCountCache struct {
	mu          sync.Mutex
	values      map[domain.EventKey]int
	invalidated []domain.EventKey
}

func newFakeCountCache() *fakeCountCache {
	return &fakeCountCache{values: make(map[domain.EventKey]int)}
}

func (f *fakeCountCache) GetOrLoad(ctx context.Context, key domain.EventKey, load func(ctx context.Context) (int, error)) (int, error) {
	f.mu.Lock()
	if v, ok := f.values[key]; ok {
		f.mu.Unlock()
		return v, nil
	}
	f.mu.Unlock()
	v, err := load(ctx)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	f.values[key] = v
	f.mu.Unlock()
	return v, nil
}

func (f *fakeCountCache) Invalidate(ctx context.Context, key domain.EventKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	f.invalidated = append(f.invalidated, key)
	return nil
}

// fakeMetrics implements domain.RegistrationMetrics and SweepMetrics.
type fakeMetrics struct {
	mu       sync.Mutex
	created  map[string]int
	rejected map[string]int
	retries  map[string]int
	swept    map[string]int64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		created:  make(map[string]int),
		rejected: make(map[string]int),
		retries:  make(map[string]int),
		swept:    make(map[string]int64),
	}
}

func (f *fakeMetrics) RegistrationCreated(p domain.Partition, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[string(p)+"/"+path]++
}

func (f *fakeMetrics) RegistrationRejected(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected[reason]++
}

func (f *fakeMetrics) StoreRetry(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries[op]++
}

func (f *fakeMetrics) GuestRecordsSwept(collection string, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept[collection] += n
}

// regFixture wires a registration service with fakes, a fixed clock and no backoff delay.
type regFixture struct {
	repo     *fakeRegistrationRepo
	payments *fakePaymentRepo
	notes    *fakeNotificationRepo
	email    *fakeEmailService
	pub      *fakePublisher
	cache    *fakeCountCache
	metrics  *fakeMetrics
	svc      *registrationService
}

func newRegFixture() *regFixture {
	f := &regFixture{
		repo:     newFakeRegistrationRepo(),
		payments: newFakePaymentRepo(),
		notes:    &fakeNotificationRepo{},
		email:    &fakeEmailService{},
		pub:      &fakePublisher{},
		cache:    newFakeCountCache(),
		metrics:  newFakeMetrics(),
	}
	svc := NewRegistrationService(RegistrationDeps{
		Registrations: f.repo,
		Payments:      f.payments,
		Notifications: f.notes,
		Email:         f.email,
		Publisher:     f.pub,
		CountCache:    f.cache,
		Metrics:       f.metrics,
		Logger:        discardLogger(),
		Now:           func() time.Time { return fixedNow },
	}).(*registrationService)
	svc.store.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	f.svc = svc
	return f
}
