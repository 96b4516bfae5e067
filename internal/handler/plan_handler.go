package handler

import (
	"net/http"

	"nexo/internal/middleware"
	"nexo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PlanHandler struct {
	plans *service.PlanService
	log   *logrus.Logger
}

func NewPlanHandler(plans *service.PlanService, log *logrus.Logger) *PlanHandler {
	return &PlanHandler{plans: plans, log: log}
}

// ---- Partner ----

// ListActive handles GET /api/v1/plans.
func (h *PlanHandler) ListActive(c *gin.Context) {
	list, err := h.plans.ListPlans(c.Request.Context(), true)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": list})
}

// MyPlan handles GET /api/v1/me/plan.
func (h *PlanHandler) MyPlan(c *gin.Context) {
	partnerID := middleware.GetPrincipalID(c)
	sub, err := h.plans.GetSubscription(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	terms, err := h.plans.ResolveTerms(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "terms": terms})
}

// Subscribe handles POST /api/v1/me/plan/subscribe.
func (h *PlanHandler) Subscribe(c *gin.Context) {
	var req struct {
		PlanID uint `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.subscribe(c, middleware.GetPrincipalID(c), req.PlanID)
}

// Renew handles POST /api/v1/me/plan/renew.
func (h *PlanHandler) Renew(c *gin.Context) {
	h.renew(c, middleware.GetPrincipalID(c))
}

// MyHistory handles GET /api/v1/me/plan/history.
func (h *PlanHandler) MyHistory(c *gin.Context) {
	h.history(c, middleware.GetPrincipalID(c))
}

// ---- Admin ----

func (h *PlanHandler) ListAll(c *gin.Context) {
	list, err := h.plans.ListPlans(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": list})
}

func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.plans.GetPlan(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PlanHandler) Create(c *gin.Context) {
	var in service.PlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.plans.CreatePlan(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.PlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.plans.UpdatePlan(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SubscribePartner handles POST /admin/partners/:id/plan.
func (h *PlanHandler) SubscribePartner(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PlanID uint `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.subscribe(c, partnerID, req.PlanID)
}

func (h *PlanHandler) RenewPartner(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.renew(c, partnerID)
}

// RemovePartnerPlan handles DELETE /admin/partners/:id/plan with an optional {note}.
func (h *PlanHandler) RemovePartnerPlan(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	sub, err := h.plans.AdminRemove(c.Request.Context(), partnerID, req.Note)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *PlanHandler) PartnerHistory(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.history(c, partnerID)
}

// ProcessRefund handles PATCH /admin/partners/:id/plan-history/:entryId/refund.
func (h *PlanHandler) ProcessRefund(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	entryID, ok := parseID(c, "entryId")
	if !ok {
		return
	}
	e, err := h.plans.MarkRefundProcessed(c.Request.Context(), partnerID, entryID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *PlanHandler) subscribe(c *gin.Context, partnerID, planID uint) {
	sub, err := h.plans.Subscribe(c.Request.Context(), partnerID, planID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *PlanHandler) renew(c *gin.Context, partnerID uint) {
	sub, err := h.plans.Renew(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *PlanHandler) history(c *gin.Context, partnerID uint) {
	list, err := h.plans.History(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": list})
}
