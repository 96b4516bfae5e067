package handler

import (
	"net/http"
	"strconv"

	"nexo/internal/middleware"
	"nexo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	notify *service.NotificationService
	log    *logrus.Logger
}

func NewNotificationHandler(notify *service.NotificationService, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{notify: notify, log: log}
}

// List returns the caller's notifications; admins and partners each see their own.
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.notify.List(c.Request.Context(), middleware.GetRole(c), middleware.GetPrincipalID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notify.MarkRead(c.Request.Context(), id, middleware.GetRole(c), middleware.GetPrincipalID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterFCMToken saves the partner's device token for push notifications.
func (h *NotificationHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.notify.UpdatePartnerFCMToken(c.Request.Context(), middleware.GetPrincipalID(c), req.Token); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
