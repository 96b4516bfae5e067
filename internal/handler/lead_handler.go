package handler

import (
	"net/http"

	"nexo/internal/domain"
	"nexo/internal/middleware"
	"nexo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type LeadHandler struct {
	engine *service.LeadEngine
	log    *logrus.Logger
}

func NewLeadHandler(engine *service.LeadEngine, log *logrus.Logger) *LeadHandler {
	return &LeadHandler{engine: engine, log: log}
}

// Accept handles POST /api/v1/bookings/:bookingId/accept.
// Partners may only accept for themselves; admins may accept on a partner's behalf.
func (h *LeadHandler) Accept(c *gin.Context) {
	bookingID, ok := parseID(c, "bookingId")
	if !ok {
		return
	}
	var req struct {
		PartnerID uint `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if middleware.GetRole(c) == domain.RolePartner && middleware.GetPrincipalID(c) != req.PartnerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot accept leads for another partner"})
		return
	}

	res, rej, err := h.engine.Accept(c.Request.Context(), bookingID, req.PartnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if rej != nil {
		respondRejection(c, rej)
		return
	}

	assignment := gin.H{
		"partner_id":             req.PartnerID,
		"lead_fee_cents":         res.Terms.LeadFeeCents,
		"plan_name":              res.Terms.PlanName,
		"terms_source":           res.Terms.Source,
		"balance_after_cents":    res.BalanceAfterCents,
		"lead_acceptance_paused": res.LeadAcceptancePaused,
		"lead_quota":             res.LeadQuota,
		"leads_used":             res.LeadsUsed,
	}
	if res.Transaction != nil {
		assignment["transaction_id"] = res.Transaction.TransactionID
	}
	c.JSON(http.StatusOK, gin.H{"booking": res.Booking, "assignment": assignment})
}

// respondRejection answers 402 with top-up guidance for a short wallet, 403 otherwise.
func respondRejection(c *gin.Context, rej *service.Rejection) {
	if rej.Reason == domain.LeadWalletInsufficient {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":  rej.Message,
			"reason": rej.Reason,
			"remediation": gin.H{
				"wallet_balance_cents":     rej.BalanceCents,
				"lead_fee_cents":           rej.LeadFeeCents,
				"min_wallet_balance_cents": rej.MinWalletBalanceCents,
				"required_top_up_cents":    rej.RequiredTopUpCents,
				"suggested_top_ups_cents":  rej.SuggestedTopUpsCents,
			},
		})
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": rej.Message, "reason": rej.Reason})
}

// Eligibility handles GET /api/v1/me/lead-eligibility.
func (h *LeadHandler) Eligibility(c *gin.Context) {
	el, err := h.engine.Eligibility(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, el)
}
