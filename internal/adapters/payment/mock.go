package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campushub/internal/domain"
)

// mockNamespace scopes the name-based ids the mock gateway derives.
var mockNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("campushub/payment/mock"))

// MockGateway stands in for the gateway in development. Order ids are derived
// from the receipt, so retrying a checkout yields the same order. Every known
// order is reported as paid in full.
type MockGateway struct {
	mu     sync.Mutex
	orders map[string]mockOrder
	now    func() time.Time
}

type mockOrder struct {
	order domain.Order
	notes map[string]string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{orders: make(map[string]mockOrder), now: time.Now}
}

func mockID(prefix, seed string) string {
	id := uuid.NewSHA1(mockNamespace, []byte(seed))
	return prefix + strings.ReplaceAll(id.String(), "-", "")[:14]
}

func (m *MockGateway) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	order := domain.Order{
		OrderID:     mockID("order_", req.Receipt),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		KeyID:       "rzp_test_mock",
		Prefill:     req.Customer,
	}
	notes := make(map[string]string, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	m.mu.Lock()
	m.orders[order.OrderID] = mockOrder{order: order, notes: notes}
	m.mu.Unlock()
	return &order, nil
}

// FetchPaymentStatus reports unknown orders as created with nothing paid.
func (m *MockGateway) FetchPaymentStatus(ctx context.Context, orderID string) (*domain.PaymentStatusResult, error) {
	m.mu.Lock()
	o, ok := m.orders[orderID]
	m.mu.Unlock()
	if !ok {
		return &domain.PaymentStatusResult{OrderID: orderID, Status: domain.GatewayStatusCreated}, nil
	}
	return &domain.PaymentStatusResult{
		OrderID:   orderID,
		Status:    domain.GatewayStatusCaptured,
		Amount:    float64(o.order.AmountMinor) / 100,
		PaymentID: mockID("pay_", orderID),
		Timestamp: m.now().UTC(),
		Receipt:   o.order.Receipt,
		Notes:     o.notes,
	}, nil
}
