package handler

import (
	"net/http"
	"strconv"

	"nexo/internal/domain"
	"nexo/internal/middleware"
	"nexo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BookingHandler struct {
	bookings *service.BookingService
	log      *logrus.Logger
}

func NewBookingHandler(bookings *service.BookingService, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var in service.BookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// List handles GET /admin/bookings?status=.
func (h *BookingHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.bookings.List(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Pending handles GET /api/v1/bookings: open leads a partner can accept.
func (h *BookingHandler) Pending(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.bookings.List(c.Request.Context(), domain.BookingStatusPending, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// Mine handles GET /api/v1/me/bookings.
func (h *BookingHandler) Mine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, err := h.bookings.ListByPartner(c.Request.Context(), middleware.GetPrincipalID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}
