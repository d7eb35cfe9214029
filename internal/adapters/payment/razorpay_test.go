package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, h http.HandlerFunc) domain.PaymentGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGateway(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL}, discardLogger())
}

func TestRazorpay_CreateOrder(t *testing.T) {
	var got orderRequest
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_ABC","amount":24999,"currency":"INR","receipt":"rcpt_e2user1","status":"created"}`))
	})

	order, err := gw.CreateOrder(context.Background(), domain.OrderRequest{
		AmountMinor:        24999,
		Currency:           "INR",
		Receipt:            "rcpt_e2user1",
		Customer:           domain.PaymentCustomer{Name: "Alice", Email: "alice@college.edu"},
		SubMerchantAccount: "acc_club1",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_ABC", order.OrderID)
	assert.Equal(t, int64(24999), order.AmountMinor)
	assert.Equal(t, "rzp_test_key", order.KeyID)
	assert.Equal(t, "alice@college.edu", order.Prefill.Email)
	assert.Equal(t, int64(24999), got.Amount)
	require.Len(t, got.Transfers, 1)
	assert.Equal(t, "acc_club1", got.Transfers[0].Account)
}

func TestRazorpay_CreateOrder_errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		errIs  error
	}{
		{name: "bad request", status: http.StatusBadRequest},
		{name: "server error", status: http.StatusBadGateway, errIs: domain.ErrUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, errIs: domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
			})

			_, err := gw.CreateOrder(context.Background(), domain.OrderRequest{AmountMinor: 1, Currency: "INR", Receipt: "r"})

			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			} else {
				assert.Contains(t, err.Error(), "amount too small")
			}
		})
	}
}

func TestRazorpay_FetchPaymentStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus string
		wantPay    string
		wantAmount float64
	}{
		{
			name:       "no attempts",
			body:       `{"items":[]}`,
			wantStatus: domain.GatewayStatusCreated,
		},
		{
			name:       "captured wins over later failure",
			body:       `{"items":[{"id":"pay_2","amount":24999,"status":"failed","created_at":1773144000},{"id":"pay_1","amount":24999,"status":"captured","created_at":1773140000}]}`,
			wantStatus: domain.GatewayStatusCaptured,
			wantPay:    "pay_1",
			wantAmount: 249.99,
		},
		{
			name:       "latest attempt",
			body:       `{"items":[{"id":"pay_1","amount":100,"status":"failed","created_at":1},{"id":"pay_2","amount":100,"status":"authorized","created_at":2}]}`,
			wantStatus: "authorized",
			wantPay:    "pay_2",
			wantAmount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/v1/orders/order_ABC":
					_, _ = w.Write([]byte(`{"id":"order_ABC","amount":24999,"currency":"INR","receipt":"rcpt_1","status":"attempted",` +
						`"notes":{"club_id":"C1","event_id":"E2","actor_id":"user-1"}}`))
				case "/v1/orders/order_ABC/payments":
					_, _ = w.Write([]byte(tt.body))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
					w.WriteHeader(http.StatusNotFound)
				}
			})

			res, err := gw.FetchPaymentStatus(context.Background(), "order_ABC")

			require.NoError(t, err)
			assert.Equal(t, "order_ABC", res.OrderID)
			assert.Equal(t, "rcpt_1", res.Receipt)
			assert.True(t, res.IssuedFor("C1", "E2", "user-1"))
			assert.False(t, res.IssuedFor("C1", "E2", "user-2"))
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantPay, res.PaymentID)
			assert.InDelta(t, tt.wantAmount, res.Amount, 0.001)
		})
	}
}

func TestRazorpay_FetchPaymentStatus_orderWithoutNotes(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/orders/order_ABC" {
			_, _ = w.Write([]byte(`{"id":"order_ABC","amount":100,"currency":"INR","receipt":"r","status":"paid","notes":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"pay_1","amount":100,"status":"captured","created_at":1}]}`))
	})

	res, err := gw.FetchPaymentStatus(context.Background(), "order_ABC")

	require.NoError(t, err)
	assert.Empty(t, res.Notes)
	assert.True(t, res.Succeeded())
	assert.False(t, res.IssuedFor("C1", "E2", "user-1"))
}

func TestRazorpay_FetchPaymentStatus_unknownOrder(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := gw.FetchPaymentStatus(context.Background(), "order_missing")

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewGateway_withoutCredentialsUsesMock(t *testing.T) {
	gw := NewGateway(Config{KeyID: "rzp_test_key"}, discardLogger())
	assert.IsType(t, &MockGateway{}, gw)
}

func TestMockGateway(t *testing.T) {
	ctx := context.Background()
	gw := NewMockGateway()
	req := domain.OrderRequest{
		AmountMinor: 24999,
		Currency:    "INR",
		Receipt:     "rcpt_e2user1",
		Notes:       domain.OrderNotes("C1", "E2", "user-1"),
	}

	a, err := gw.CreateOrder(ctx, req)
	require.NoError(t, err)
	b, err := NewMockGateway().CreateOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, a.OrderID, b.OrderID, "order id derives from the receipt")
	assert.Regexp(t, `^order_[0-9a-f]{14}$`, a.OrderID)

	other, err := gw.CreateOrder(ctx, domain.OrderRequest{AmountMinor: 100, Currency: "INR", Receipt: "rcpt_e3user1"})
	require.NoError(t, err)
	assert.NotEqual(t, a.OrderID, other.OrderID)

	status, err := gw.FetchPaymentStatus(ctx, a.OrderID)
	require.NoError(t, err)
	assert.True(t, status.Succeeded())
	assert.InDelta(t, 249.99, status.Amount, 0.001)
	assert.Equal(t, "rcpt_e2user1", status.Receipt)
	assert.True(t, status.IssuedFor("C1", "E2", "user-1"))

	unknown, err := gw.FetchPaymentStatus(ctx, "order_nope")
	require.NoError(t, err)
	assert.False(t, unknown.Succeeded())
}
