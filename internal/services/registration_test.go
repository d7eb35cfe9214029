package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub/internal/domain"
)

var (
	freeEvent = domain.EventInfo{Title: "Hack Night", Date: fixedNow.AddDate(0, 0, 7)}
	paidEvent = domain.EventInfo{Title: "Workshop", Date: fixedNow.AddDate(0, 0, 7), RegistrationFee: 250}
	alice     = domain.Contact{Name: "Alice", Email: "alice@college.edu"}
)

func TestRegistrationService_RegisterForEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		clubID      string
		eventID     string
		actor       domain.Actor
		info        domain.EventInfo
		wantErr     error
		wantCreates int
	}{
		{
			name:        "free member registration",
			clubID:      "C1",
			eventID:     "E1",
			actor:       domain.MemberActor("user-1"),
			info:        freeEvent,
			wantCreates: 1,
		},
		{
			name:        "fee-bearing event rejected without write",
			clubID:      "C1",
			eventID:     "E1",
			actor:       domain.MemberActor("user-1"),
			info:        paidEvent,
			wantErr:     domain.ErrPaymentRequired,
			wantCreates: 0,
		},
		{
			name:        "missing event id",
			clubID:      "C1",
			actor:       domain.MemberActor("user-1"),
			info:        freeEvent,
			wantErr:     domain.ErrInvalidInput,
			wantCreates: 0,
		},
		{
			name:        "missing actor",
			clubID:      "C1",
			eventID:     "E1",
			info:        freeEvent,
			wantErr:     domain.ErrInvalidInput,
			wantCreates: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegFixture()

			id, err := f.svc.RegisterForEvent(ctx, tt.clubID, tt.eventID, tt.actor, alice, tt.info)

			assert.Equal(t, tt.wantCreates, f.repo.createCalls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)
				return
			}
			require.NoError(t, err)
			reg := f.repo.get(domain.RegistrationRef{ClubID: tt.clubID, EventID: tt.eventID, Partition: domain.PartitionMember, ID: id})
			require.NotNil(t, reg)
			assert.Equal(t, domain.StatusConfirmed, reg.Status)
			assert.Equal(t, domain.NotCheckedIn, reg.CheckInStatus)
			assert.Nil(t, reg.PaymentStatus)
			assert.Empty(t, reg.PaymentID)
			assert.Nil(t, reg.ExpiresAt)
			assert.Equal(t, 1, f.metrics.created["member/free"])
			assert.Equal(t, []string{domain.RoutingRegistrationCreated}, f.pub.keys)
			assert.Equal(t, []domain.EventKey{{ClubID: "C1", EventID: "E1"}}, f.cache.invalidated)
			require.Len(t, f.email.confirmations, 1)
			assert.Equal(t, "Hack Night", f.email.confirmations[0].EventTitle)
			assert.False(t, f.email.confirmations[0].Guest)
		})
	}
}

func TestRegistrationService_RegisterForEvent_PaymentRequiredMetric(t *testing.T) {
	f := newRegFixture()

	_, err := f.svc.RegisterForEvent(context.Background(), "C1", "E1", domain.MemberActor("user-1"), alice, paidEvent)

	require.ErrorIs(t, err, domain.ErrPaymentRequired)
	assert.Equal(t, 1, f.metrics.rejected["payment_required"])
	assert.Zero(t, f.repo.count())
}

func TestRegistrationService_DuplicateActiveRegistrationRejected(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture()
	actor := domain.MemberActor("user-1")

	_, err := f.svc.RegisterForEvent(ctx, "C1", "E1", actor, alice, freeEvent)
	require.NoError(t, err)

	_, err = f.svc.RegisterForEvent(ctx, "C1", "E1", actor, alice, freeEvent)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, 1, f.metrics.rejected["duplicate"])
}

func TestRegistrationService_CancelFreesActor(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture()
	actor := domain.MemberActor("user-1")

	id, err := f.svc.RegisterForEvent(ctx, "C1", "E1", actor, alice, freeEvent)
	require.NoError(t, err)
	ref := domain.RegistrationRef{ClubID: "C1", EventID: "E1", Partition: domain.PartitionMember, ID: id}

	reg, err := f.svc.Cancel(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, reg.Status)

	registered, err := f.svc.IsRegistered(ctx, "C1", "E1", actor)
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = f.svc.Cancel(ctx, ref)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	newID, err := f.svc.RegisterForEvent(ctx, "C1", "E1", actor, alice, freeEvent)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)
	assert.Contains(t, f.pub.keys, domain.RoutingRegistrationCancelled)
}

func TestRegistrationService_RegisterForPaidEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("writes confirmed and paid", func(t *testing.T) {
		f := newRegFixture()

		id, err := f.svc.RegisterForPaidEvent(ctx, "C1", "E2", domain.MemberActor("user-1"), alice, paidEvent, "pay_123")

		require.NoError(t, err)
		reg := f.repo.get(domain.RegistrationRef{ClubID: "C1", EventID: "E2", Partition: domain.PartitionMember, ID: id})
		require.NotNil(t, reg)
		assert.Equal(t, domain.StatusConfirmed, reg.Status)
		require.NotNil(t, reg.PaymentStatus)
		assert.Equal(t, domain.PaymentPaid, *reg.PaymentStatus)
		assert.Equal(t, "pay_123", reg.PaymentID)
		assert.Equal(t, 1, f.metrics.created["member/paid"])
		require.Len(t, f.email.confirmations, 1)
		assert.True(t, f.email.confirmations[0].Paid)
	})

	t.Run("payment id required", func(t *testing.T) {
		f := newRegFixture()

		_, err := f.svc.RegisterForPaidEvent(ctx, "C1", "E2", domain.MemberActor("user-1"), alice, paidEvent, "  ")

		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Zero(t, f.repo.createCalls)
	})

	t.Run("guest actor lands in guest partition with expiry", func(t *testing.T) {
		f := newRegFixture()
		actor := domain.GuestActor("g@x.org", fixedNow)

		id, err := f.svc.RegisterForPaidEvent(ctx, "C1", "E2", actor, domain.Contact{Name: "G", Email: "g@x.org"}, paidEvent, "pay_9")

		require.NoError(t, err)
		reg := f.repo.get(domain.RegistrationRef{ClubID: "C1", EventID: "E2", Partition: domain.PartitionGuest, ID: id})
		require.NotNil(t, reg)
		require.NotNil(t, reg.ExpiresAt)
		assert.Equal(t, fixedNow.AddDate(0, 3, 0), *reg.ExpiresAt)
	})
}

func TestRegistrationService_GuestScenario(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture()
	guest := domain.GuestProfile{
		Contact:     domain.Contact{Name: "Guest", Email: "a@b.com"},
		Institution: "Other College",
	}

	id, err := f.svc.RegisterGuestForEvent(ctx, "C1", "E1", guest, freeEvent)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = f.svc.RegisterGuestForEvent(ctx, "C1", "E1", guest, freeEvent)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	actor, err := domain.ParseActorID("guest_a_b_com")
	require.NoError(t, err)
	registered, err := f.svc.IsRegistered(ctx, "C1", "E1", actor)
	require.NoError(t, err)
	assert.True(t, registered)

	assert.Equal(t, 0, f.svc.GetEventRegistrationCount(ctx, "C1", "E1"))

	stats, err := f.svc.GetEventRegistrationStats(ctx, "C1", "E1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRegistrations)
	assert.Equal(t, 1, stats.Guests)
	assert.Equal(t, 1, stats.ByStatus[domain.StatusConfirmed])

	reg := f.repo.get(domain.RegistrationRef{ClubID: "C1", EventID: "E1", Partition: domain.PartitionGuest, ID: id})
	require.NotNil(t, reg)
	assert.Equal(t, "guest_a_b_com", reg.ActorID)
	assert.Equal(t, "Other College", reg.Institution)
	require.NotNil(t, reg.ExpiresAt)
	assert.Equal(t, fixedNow.AddDate(0, 3, 0), *reg.ExpiresAt)

	require.Len(t, f.notes.created, 1)
	assert.Equal(t, "guest_a_b_com", f.notes.created[0].ActorID)
	assert.Equal(t, *reg.ExpiresAt, f.notes.created[0].ExpiresAt)
	assert.Empty(t, f.cache.invalidated, "guest writes do not touch the member count")
}

func TestRegistrationService_RegisterGuestForEvent_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		guest   domain.GuestProfile
		info    domain.EventInfo
		wantErr error
	}{
		{
			name:    "invalid email",
			guest:   domain.GuestProfile{Contact: domain.Contact{Name: "G", Email: "not-an-email"}},
			info:    freeEvent,
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "missing name",
			guest:   domain.GuestProfile{Contact: domain.Contact{Email: "g@x.org"}},
			info:    freeEvent,
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "fee-bearing event",
			guest:   domain.GuestProfile{Contact: domain.Contact{Name: "G", Email: "g@x.org"}},
			info:    paidEvent,
			wantErr: domain.ErrPaymentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegFixture()

			_, err := f.svc.RegisterGuestForEvent(ctx, "C1", "E1", tt.guest, tt.info)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.repo.createCalls)
		})
	}
}

func TestRegistrationService_IsRegistered(t *testing.T) {
	ctx := context.Background()

	t.Run("missing club id is not registered", func(t *testing.T) {
		f := newRegFixture()

		ok, err := f.svc.IsRegistered(ctx, "", "E1", domain.MemberActor("user-1"))

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, f.repo.listCalls)
	})

	t.Run("transient failure propagates instead of reporting false", func(t *testing.T) {
		f := newRegFixture()
		f.repo.listErr = domain.ErrUnavailable

		ok, err := f.svc.IsRegistered(ctx, "C1", "E1", domain.MemberActor("user-1"))

		require.ErrorIs(t, err, domain.ErrUnavailable)
		assert.False(t, ok)
		assert.Equal(t, defaultStoreMaxRetries+1, f.repo.listCalls)
	})

	t.Run("member and guest partitions are separate", func(t *testing.T) {
		f := newRegFixture()
		_, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor("guest_x"), alice, freeEvent)
		require.NoError(t, err)

		ok, err := f.svc.IsRegistered(ctx, "C1", "E1", domain.Actor{Kind: domain.ActorGuest, ID: "guest_x"})

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRegistrationService_StoreRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("transient create is retried", func(t *testing.T) {
		f := newRegFixture()
		f.repo.failCreates = 2

		id, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor("user-1"), alice, freeEvent)

		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 3, f.repo.createCalls)
		assert.Equal(t, 2, f.metrics.retries["registration.create"])
	})

	t.Run("exhausted retries surface as unavailable", func(t *testing.T) {
		f := newRegFixture()
		f.repo.failCreates = 10

		_, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor("user-1"), alice, freeEvent)

		require.ErrorIs(t, err, domain.ErrUnavailable)
		assert.Equal(t, defaultStoreMaxRetries+1, f.repo.createCalls)
	})

	t.Run("permission errors are not retried", func(t *testing.T) {
		f := newRegFixture()
		f.repo.createErr = domain.ErrForbidden

		_, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor("user-1"), alice, freeEvent)

		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, 1, f.repo.createCalls)
		assert.Empty(t, f.metrics.retries)
	})
}

func TestRegistrationService_SideEffectFailuresDoNotFailRegistration(t *testing.T) {
	f := newRegFixture()
	f.email.err = errors.New("smtp down")
	f.pub.err = errors.New("broker down")
	f.notes.err = errors.New("insert failed")

	id, err := f.svc.RegisterGuestForEvent(context.Background(), "C1", "E1",
		domain.GuestProfile{Contact: domain.Contact{Name: "G", Email: "g@x.org"}}, freeEvent)

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, f.repo.count())
}

func TestRegistrationService_UpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	pending := domain.PaymentPending
	seed := &domain.Registration{
		ID: "reg-x", Partition: domain.PartitionMember, ClubID: "C1", EventID: "E1", ActorID: "user-1",
		Status: domain.StatusPending, PaymentStatus: &pending, CheckInStatus: domain.NotCheckedIn,
	}
	ref := seed.Ref()

	tests := []struct {
		name       string
		status     domain.PaymentStatus
		paymentID  string
		wantErr    error
		wantStatus domain.RegistrationStatus
	}{
		{name: "paid forces confirmed", status: domain.PaymentPaid, paymentID: "pay_1", wantStatus: domain.StatusConfirmed},
		{name: "refunded leaves status", status: domain.PaymentRefunded, wantStatus: domain.StatusPending},
		{name: "paid without payment id", status: domain.PaymentPaid, wantErr: domain.ErrInvalidInput},
		{name: "unknown status", status: "bogus", wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegFixture()
			f.repo.put(seed)

			reg, err := f.svc.UpdatePaymentStatus(ctx, ref, tt.status, tt.paymentID)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, reg.PaymentStatus)
			assert.Equal(t, tt.status, *reg.PaymentStatus)
			assert.Equal(t, tt.wantStatus, reg.Status)
		})
	}

	t.Run("missing registration", func(t *testing.T) {
		f := newRegFixture()

		_, err := f.svc.UpdatePaymentStatus(ctx, ref, domain.PaymentPaid, "pay_1")

		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRegistrationService_CheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("checks in active registration", func(t *testing.T) {
		f := newRegFixture()
		id, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor("user-1"), alice, freeEvent)
		require.NoError(t, err)
		ref := domain.RegistrationRef{ClubID: "C1", EventID: "E1", Partition: domain.PartitionMember, ID: id}

		reg, err := f.svc.CheckIn(ctx, ref)

		require.NoError(t, err)
		assert.Equal(t, domain.CheckedIn, reg.CheckInStatus)
		require.NotNil(t, reg.CheckedInAt)
		assert.Equal(t, fixedNow, *reg.CheckedInAt)
		assert.Contains(t, f.pub.keys, domain.RoutingRegistrationCheckedIn)

		stats, err := f.svc.GetEventRegistrationStats(ctx, "C1", "E1")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.CheckedIn)
	})

	t.Run("cancelled registration cannot check in", func(t *testing.T) {
		f := newRegFixture()
		seed := &domain.Registration{ID: "r1", Partition: domain.PartitionGuest, ClubID: "C1", EventID: "E1", Status: domain.StatusCancelled}
		f.repo.put(seed)

		_, err := f.svc.CheckIn(ctx, seed.Ref())

		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown partition", func(t *testing.T) {
		f := newRegFixture()

		_, err := f.svc.CheckIn(ctx, domain.RegistrationRef{ClubID: "C1", EventID: "E1", Partition: "staff", ID: "r1"})

		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRegistrationService_UpdateStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture()
	id, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor("user-1"), alice, freeEvent)
	require.NoError(t, err)
	ref := domain.RegistrationRef{ClubID: "C1", EventID: "E1", Partition: domain.PartitionMember, ID: id}

	reg, err := f.svc.UpdateStatus(ctx, ref, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, reg.Status)

	_, err = f.svc.UpdateStatus(ctx, ref, "archived")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.svc.Delete(ctx, ref))
	assert.Zero(t, f.repo.count())
	require.ErrorIs(t, f.svc.Delete(ctx, ref), domain.ErrNotFound)
}

func TestRegistrationService_StoreEventPayment(t *testing.T) {
	ctx := context.Background()
	record := func() *domain.PaymentRecord {
		return &domain.PaymentRecord{
			PaymentID: "pay_1", OrderID: "order_1", Partition: domain.PartitionMember,
			ClubID: "C1", EventID: "E1", RegistrationID: "reg-1", ActorID: "user-1", Amount: 250, PaidAt: fixedNow,
		}
	}

	t.Run("same payment id stored once", func(t *testing.T) {
		f := newRegFixture()

		f.svc.StoreEventPayment(ctx, record())
		f.svc.StoreEventPayment(ctx, record())

		assert.Len(t, f.payments.records, 1)
		assert.Equal(t, domain.DefaultCurrency, f.payments.records["pay_1"].Currency)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		f := newRegFixture()
		f.payments.err = errors.New("disk full")

		assert.NotPanics(t, func() { f.svc.StoreEventPayment(ctx, record()) })
		assert.NotPanics(t, func() { f.svc.StoreEventPayment(ctx, nil) })
		assert.Empty(t, f.payments.records)
	})
}

func TestRegistrationService_GetEventRegistrationCount(t *testing.T) {
	ctx := context.Background()

	t.Run("counts members only and caches", func(t *testing.T) {
		f := newRegFixture()
		for i := range 3 {
			_, err := f.svc.RegisterForEvent(ctx, "C1", "E1", domain.MemberActor(fmt.Sprintf("user-%d", i)), alice, freeEvent)
			require.NoError(t, err)
		}
		_, err := f.svc.RegisterGuestForEvent(ctx, "C1", "E1", domain.GuestProfile{Contact: domain.Contact{Name: "G", Email: "g@x.org"}}, freeEvent)
		require.NoError(t, err)

		assert.Equal(t, 3, f.svc.GetEventRegistrationCount(ctx, "C1", "E1"))
		assert.Equal(t, 3, f.svc.GetEventRegistrationCount(ctx, "C1", "E1"))
		assert.Equal(t, 1, f.repo.countCalls)

		regs, err := f.svc.GetEventRegistrations(ctx, "C1", "E1")
		require.NoError(t, err)
		assert.Len(t, regs, 4)
	})

	t.Run("errors degrade to zero", func(t *testing.T) {
		f := newRegFixture()
		f.repo.countErr = errors.New("boom")

		assert.Equal(t, 0, f.svc.GetEventRegistrationCount(ctx, "C1", "E1"))
	})

	t.Run("missing ids", func(t *testing.T) {
		f := newRegFixture()

		assert.Equal(t, 0, f.svc.GetEventRegistrationCount(ctx, "", "E1"))
		assert.Zero(t, f.repo.countCalls)
	})
}

func TestRegistrationService_GetEventRegistrations_Errors(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture()

	_, err := f.svc.GetEventRegistrations(ctx, "", "E1")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	f.repo.listErr = domain.ErrForbidden
	_, err = f.svc.GetEventRegistrationStats(ctx, "C1", "E1")
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegistrationService_BatchCheckUserRegistrations(t *testing.T) {
	ctx := context.Background()
	actor := domain.MemberActor("user-1")

	t.Run("returns registered events in input order", func(t *testing.T) {
		f := newRegFixture()
		events := make([]domain.EventKey, 25)
		for i := range events {
			events[i] = domain.EventKey{ClubID: "C1", EventID: fmt.Sprintf("E%02d", i)}
		}
		for _, i := range []int{0, 12, 24} {
			_, err := f.svc.RegisterForEvent(ctx, "C1", events[i].EventID, actor, alice, freeEvent)
			require.NoError(t, err)
		}
		events = append(events, domain.EventKey{EventID: "no-club"})

		ids, err := f.svc.BatchCheckUserRegistrations(ctx, actor, events)

		require.NoError(t, err)
		assert.Equal(t, []string{"E00", "E12", "E24"}, ids)
	})

	t.Run("empty input", func(t *testing.T) {
		f := newRegFixture()

		ids, err := f.svc.BatchCheckUserRegistrations(ctx, actor, nil)

		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("store error propagates", func(t *testing.T) {
		f := newRegFixture()
		f.repo.listErr = domain.ErrForbidden

		_, err := f.svc.BatchCheckUserRegistrations(ctx, actor, []domain.EventKey{{ClubID: "C1", EventID: "E1"}})

		require.ErrorIs(t, err, domain.ErrForbidden)
	})
}
