package handler

import (
	"net/http"
	"strconv"

	"nexo/internal/middleware"
	"nexo/internal/service"
	"nexo/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WalletHandler struct {
	ledger *service.LedgerService
	topUps *service.TopUpService
	log    *logrus.Logger
}

func NewWalletHandler(ledger *service.LedgerService, topUps *service.TopUpService, log *logrus.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledger, topUps: topUps, log: log}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	sum, err := h.ledger.Summary(c.Request.Context(), middleware.GetPrincipalID(c), 20)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var mgPlan interface{}
	if sum.Subscription != nil && sum.Subscription.Plan != nil {
		mgPlan = sum.Subscription
	}
	c.JSON(http.StatusOK, gin.H{
		"balance_cents":            sum.Wallet.BalanceCents,
		"balance":                  money.Format(sum.Wallet.BalanceCents),
		"currency":                 sum.Wallet.Currency,
		"wallet_status":            sum.Wallet.Status,
		"transactions":             sum.Transactions,
		"lead_fee_cents":           sum.Terms.LeadFeeCents,
		"min_wallet_balance_cents": sum.Terms.MinWalletBalanceCents,
		"terms_source":             sum.Terms.Source,
		"lead_acceptance_paused":   sum.LeadAcceptancePaused,
		"mg_plan":                  mgPlan,
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, total, err := h.ledger.ListTransactions(c.Request.Context(), middleware.GetPrincipalID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list, "total": total, "limit": limit, "offset": offset})
}

// CreateTopUp handles POST /api/v1/wallet/top-ups. Amount is a major-unit decimal string.
func (h *WalletHandler) CreateTopUp(c *gin.Context) {
	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cents, err := money.Parse(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	t, err := h.topUps.Create(c.Request.Context(), middleware.GetPrincipalID(c), cents, c.GetHeader(middleware.HeaderIdempotencyKey))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GetTopUp handles GET /api/v1/wallet/top-ups/:id.
func (h *WalletHandler) GetTopUp(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.topUps.Get(c.Request.Context(), middleware.GetPrincipalID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
