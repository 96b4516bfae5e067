package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nexo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PaymentWebhookHandler struct {
	topUps        *service.TopUpService
	secret        string
	allowUnsigned bool
	log           *logrus.Logger
}

// NewPaymentWebhookHandler builds the webhook endpoint. With an empty secret
// every request is refused unless allowUnsigned is set.
func NewPaymentWebhookHandler(topUps *service.TopUpService, secret string, allowUnsigned bool, log *logrus.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{topUps: topUps, secret: secret, allowUnsigned: allowUnsigned, log: log}
}

// Handle expects JSON { "reference": "...", "status": "COMPLETED" } signed in
// X-Webhook-Signature (hex HMAC-SHA256 of the body).
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !h.authentic(body, c.GetHeader("X-Webhook-Signature")) {
		h.log.WithField("client_ip", c.ClientIP()).Warn("payment webhook rejected: bad or missing signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	var payload struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.Reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}

	t, applied, err := h.topUps.Complete(c.Request.Context(), payload.Reference, payload.Status)
	switch {
	case errors.Is(err, service.ErrTopUpNotFound):
		// not ours; acknowledge so the provider stops retrying
		h.log.WithFields(logrus.Fields{"reference": payload.Reference}).Warn("webhook for unknown top-up")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	case err != nil:
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": applied, "status": t.Status})
}

func (h *PaymentWebhookHandler) authentic(body []byte, signature string) bool {
	if h.secret == "" {
		return h.allowUnsigned
	}
	return h.verifySignature(body, signature)
}

func (h *PaymentWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
