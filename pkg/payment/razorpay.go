package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const razorpayBaseURL = "https://api.razorpay.com"

// RazorpayProvider creates orders through the Razorpay Orders API. Payment
// completion arrives through the webhook; VerifyPayment polls the order.
type RazorpayProvider struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	client    *http.Client
	log       *logrus.Logger
}

func NewRazorpayProvider(baseURL, keyID, keySecret string, log *logrus.Logger) *RazorpayProvider {
	if baseURL == "" {
		baseURL = razorpayBaseURL
	}
	return &RazorpayProvider{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

type razorpayOrderReq struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	AmountDue int64  `json:"amount_due"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"` // created, attempted, paid
	CreatedAt int64  `json:"created_at"`
}

func (p *RazorpayProvider) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	notes := map[string]string{"partner_id": fmt.Sprintf("%d", req.PartnerID)}
	for k, v := range req.Notes {
		notes[k] = v
	}
	payload := razorpayOrderReq{
		Amount:   req.AmountCents,
		Currency: currency,
		Receipt:  req.IdempotencyKey,
		Notes:    notes,
	}
	var out razorpayOrder
	if err := p.do(ctx, http.MethodPost, "/v1/orders", payload, &out); err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	p.log.WithFields(logrus.Fields{
		"order_id":   out.ID,
		"receipt":    out.Receipt,
		"status":     out.Status,
		"partner_id": req.PartnerID,
	}).Info("razorpay order created")
	return &PaymentResponse{
		Reference: out.ID,
		Status:    StatusPending,
		ExpiresAt: time.Now().Add(req.ExpiresIn),
	}, nil
}

func (p *RazorpayProvider) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	var out razorpayOrder
	if err := p.do(ctx, http.MethodGet, "/v1/orders/"+reference, nil, &out); err != nil {
		return false, fmt.Errorf("razorpay fetch order: %w", err)
	}
	return out.Status == "paid", nil
}

func (p *RazorpayProvider) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.KeyID, p.KeySecret)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		p.log.WithFields(logrus.Fields{"status": resp.StatusCode, "path": path}).Warn("razorpay request failed")
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
