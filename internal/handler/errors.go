package handler

import (
	"errors"
	"net/http"
	"strconv"

	"nexo/internal/repository"
	"nexo/internal/service"
	"nexo/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusOf maps service and repository errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCreds):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrWalletBlocked):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPartnerNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrHistoryNotFound),
		errors.Is(err, service.ErrTopUpNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBookingNotPending),
		errors.Is(err, service.ErrPartnerExists),
		errors.Is(err, service.ErrPlanExists),
		errors.Is(err, service.ErrPlanInactive),
		errors.Is(err, service.ErrNoActivePlan),
		errors.Is(err, service.ErrInvalidRefundTransition),
		errors.Is(err, service.ErrPaymentUnverified),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Internal errors are logged and hidden from the client.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
