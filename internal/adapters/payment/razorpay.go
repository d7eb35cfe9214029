package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"campushub/internal/domain"
)

const defaultBaseURL = "https://api.razorpay.com"

// Config holds gateway credentials. Empty credentials select the mock gateway.
type Config struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGateway returns a Razorpay client, or a deterministic mock when no
// credentials are configured.
func NewGateway(cfg Config, logger *slog.Logger) domain.PaymentGateway {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		logger.Warn("payment gateway credentials not set, using mock gateway")
		return NewMockGateway()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &razorpayClient{cfg: cfg, logger: logger}
}

type razorpayClient struct {
	cfg    Config
	logger *slog.Logger
}

type transfer struct {
	Account  string `json:"account"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type orderRequest struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes,omitempty"`
	Transfers []transfer        `json:"transfers,omitempty"`
}

type orderResponse struct {
	ID       string     `json:"id"`
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
	Receipt  string     `json:"receipt"`
	Status   string     `json:"status"`
	Notes    orderNotes `json:"notes"`
}

// orderNotes decodes the order's notes. The API sends an empty array instead of
// an object when an order has none.
type orderNotes map[string]string

func (n *orderNotes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*n = nil
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

type paymentEntity struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type paymentList struct {
	Items []paymentEntity `json:"items"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *razorpayClient) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	body := orderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	if req.SubMerchantAccount != "" {
		body.Transfers = []transfer{{Account: req.SubMerchantAccount, Amount: req.AmountMinor, Currency: req.Currency}}
	}

	var out orderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &out); err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return &domain.Order{
		OrderID:     out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		Receipt:     out.Receipt,
		KeyID:       c.cfg.KeyID,
		Prefill:     req.Customer,
	}, nil
}

// FetchPaymentStatus reports the order's receipt and notes together with its
// best payment attempt: a captured payment wins, otherwise the most recent
// attempt. An order without attempts is reported as created.
func (c *razorpayClient) FetchPaymentStatus(ctx context.Context, orderID string) (*domain.PaymentStatusResult, error) {
	path := "/v1/orders/" + url.PathEscape(orderID)
	var order orderResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &order); err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}
	var list paymentList
	if err := c.do(ctx, http.MethodGet, path+"/payments", nil, &list); err != nil {
		return nil, fmt.Errorf("razorpay fetch payments: %w", err)
	}

	result := &domain.PaymentStatusResult{
		OrderID: orderID,
		Status:  domain.GatewayStatusCreated,
		Receipt: order.Receipt,
		Notes:   order.Notes,
	}
	var best *paymentEntity
	for i := range list.Items {
		p := &list.Items[i]
		switch {
		case best == nil:
			best = p
		case p.Status == domain.GatewayStatusCaptured && best.Status != domain.GatewayStatusCaptured:
			best = p
		case best.Status != domain.GatewayStatusCaptured && p.CreatedAt > best.CreatedAt:
			best = p
		}
	}
	if best != nil {
		result.Status = best.Status
		result.Amount = float64(best.Amount) / 100
		result.PaymentID = best.ID
		result.Timestamp = time.Unix(best.CreatedAt, 0).UTC()
	}
	return result, nil
}

func (c *razorpayClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		c.logger.WarnContext(ctx, "payment gateway error", "status", resp.StatusCode, "code", apiErr.Error.Code, "path", path)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return domain.ErrNotFound
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: gateway returned status %d", domain.ErrUnavailable, resp.StatusCode)
		default:
			return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
