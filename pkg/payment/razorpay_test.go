package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpayProvider_InitiatePayment(t *testing.T) {
	var got razorpayOrderReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		w.Write([]byte(`{"id":"order_123","entity":"order","amount":10000,"currency":"INR","receipt":"idem-1","status":"created"}`))
	}))
	defer srv.Close()

	p := NewRazorpayProvider(srv.URL, "key", "secret", logrus.New())
	resp, err := p.InitiatePayment(context.Background(), PaymentRequest{PartnerID: 9, AmountCents: 10000, IdempotencyKey: "idem-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_123", resp.Reference)
	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, int64(10000), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "9", got.Notes["partner_id"])
}

func TestRazorpayProvider_VerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders/order_paid":
			w.Write([]byte(`{"id":"order_paid","status":"paid"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
		}
	}))
	defer srv.Close()

	p := NewRazorpayProvider(srv.URL, "key", "secret", logrus.New())
	ok, err := p.VerifyPayment(context.Background(), "order_paid")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.VerifyPayment(context.Background(), "order_missing")
	assert.Error(t, err)
}

func TestStubProvider(t *testing.T) {
	p := &StubProvider{}
	resp, err := p.InitiatePayment(context.Background(), PaymentRequest{PartnerID: 3})
	require.NoError(t, err)
	ok, err := p.VerifyPayment(context.Background(), resp.Reference)
	require.NoError(t, err)
	assert.True(t, ok)
}
