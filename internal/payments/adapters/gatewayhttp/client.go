package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mercato/backoffice/internal/config"
	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

// Client talks to the payment processor's REST API. Every call carries the
// configured timeout so a stalled processor cannot pin a worker goroutine.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type authorizePayload struct {
	ReferenceID  string         `json:"reference_id"`
	OrderID      string         `json:"order_id"`
	CustomerID   string         `json:"customer_id"`
	AmountCents  int64          `json:"amount_cents"`
	Installments int            `json:"installments"`
	Method       string         `json:"method"`
	Billing      addressPayload `json:"billing_address"`
	Delivery     addressPayload `json:"delivery_address"`
}

type addressPayload struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type paymentResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Client) Authorize(ctx context.Context, req ports.AuthorizeRequest) (*ports.GatewayResult, error) {
	payload := authorizePayload{
		ReferenceID:  req.PaymentID,
		OrderID:      req.OrderID,
		CustomerID:   req.CustomerID,
		AmountCents:  req.AmountCents,
		Installments: req.Installments,
		Method:       req.Method,
		Billing: addressPayload{
			Street:  req.BillingAddress.Street,
			City:    req.BillingAddress.City,
			Zip:     req.BillingAddress.Zip,
			Country: req.BillingAddress.Country,
		},
		Delivery: addressPayload{
			Street:  req.DeliveryAddress.Street,
			City:    req.DeliveryAddress.City,
			Zip:     req.DeliveryAddress.Zip,
			Country: req.DeliveryAddress.Country,
		},
	}

	resp, err := c.post(ctx, "/payments", payload)
	if err != nil {
		return nil, err
	}
	return &ports.GatewayResult{GatewayPaymentID: resp.ID, Status: domain.PaymentStatus(resp.Status)}, nil
}

func (c *Client) Capture(ctx context.Context, gatewayPaymentID string) (*ports.GatewayResult, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/payments/%s/capture", gatewayPaymentID), nil)
	if err != nil {
		return nil, err
	}
	return &ports.GatewayResult{GatewayPaymentID: resp.ID, Status: domain.PaymentStatus(resp.Status)}, nil
}

func (c *Client) CancelAuthorization(ctx context.Context, gatewayPaymentID string) (*ports.GatewayResult, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/payments/%s/cancel", gatewayPaymentID), nil)
	if err != nil {
		return nil, err
	}
	return &ports.GatewayResult{GatewayPaymentID: resp.ID, Status: domain.PaymentStatus(resp.Status)}, nil
}

func (c *Client) GetByID(ctx context.Context, gatewayPaymentID string) (*ports.PaymentDetails, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+gatewayPaymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(httpReq)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	resp, err := decodeResponse(httpResp)
	if err != nil {
		return nil, err
	}
	return &ports.PaymentDetails{
		GatewayPaymentID: resp.ID,
		Status:           domain.PaymentStatus(resp.Status),
		AmountCents:      resp.AmountCents,
		UpdatedAt:        resp.UpdatedAt,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*paymentResponse, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(httpReq)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	return decodeResponse(httpResp)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func decodeResponse(httpResp *http.Response) (*paymentResponse, error) {
	switch {
	case httpResp.StatusCode == http.StatusNotFound:
		return nil, ports.ErrNotFound
	case httpResp.StatusCode == http.StatusPaymentRequired || httpResp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ports.ErrGatewayDeclined
	case httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ports.ErrGatewayUnavailable, httpResp.StatusCode)
	case httpResp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, fmt.Errorf("gateway rejected request: status %d: %s", httpResp.StatusCode, body)
	}

	var resp paymentResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return &resp, nil
}
