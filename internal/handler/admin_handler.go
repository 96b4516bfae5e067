package handler

import (
	"net/http"
	"strconv"

	"nexo/internal/domain"
	"nexo/internal/middleware"
	"nexo/internal/models"
	"nexo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	admins *service.AdminService
	ledger *service.LedgerService
	log    *logrus.Logger
}

func NewAdminHandler(admins *service.AdminService, ledger *service.LedgerService, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{admins: admins, ledger: ledger, log: log}
}

// Login handles POST /admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, token, err := h.admins.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": a, "access_token": token})
}

// ---- Partners ----

func (h *AdminHandler) CreatePartner(c *gin.Context) {
	var in service.PartnerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.admins.CreatePartner(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPartners handles GET /admin/partners?search=&page=&limit=.
func (h *AdminHandler) ListPartners(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.admins.ListPartners(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

func (h *AdminHandler) GetPartner(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.admins.GetPartner(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ---- Wallets ----

type adjustmentRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

// CreditWallet handles POST /admin/partners/:id/wallet/credit.
func (h *AdminHandler) CreditWallet(c *gin.Context) {
	h.adjust(c, domain.TxTypeCredit)
}

// DebitWallet handles POST /admin/partners/:id/wallet/debit.
func (h *AdminHandler) DebitWallet(c *gin.Context) {
	h.adjust(c, domain.TxTypeDebit)
}

func (h *AdminHandler) adjust(c *gin.Context, txType string) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Description == "" {
		req.Description = "Manual adjustment"
	}
	adminID := middleware.GetPrincipalID(c)
	if req.Reference == "" {
		req.Reference = "admin:" + strconv.FormatUint(uint64(adminID), 10)
	}

	var (
		txn *models.WalletTransaction
		err error
	)
	if txType == domain.TxTypeCredit {
		txn, err = h.ledger.Credit(c.Request.Context(), partnerID, req.AmountCents, req.Description, req.Reference)
	} else {
		txn, err = h.ledger.Debit(c.Request.Context(), partnerID, req.AmountCents, req.Description, req.Reference)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.admins.RecordAdjustment(c.Request.Context(), adminID, txn)
	c.JSON(http.StatusCreated, txn)
}

// SetWalletStatus handles PATCH /admin/partners/:id/wallet {status: ACTIVE|BLOCKED}.
func (h *AdminHandler) SetWalletStatus(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.ledger.SetWalletStatus(c.Request.Context(), partnerID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *AdminHandler) ListWalletTransactions(c *gin.Context) {
	partnerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, total, err := h.ledger.ListTransactions(c.Request.Context(), partnerID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// ListPayments handles GET /admin/payment-transactions?partner_id=&fee_type=.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	page, limit := parsePagination(c)
	var partnerID uint
	if v := c.Query("partner_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner_id"})
			return
		}
		partnerID = uint(id)
	}
	list, total, err := h.admins.ListPayments(c.Request.Context(), partnerID, c.Query("fee_type"), page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// ---- Settings ----

func (h *AdminHandler) ListSettings(c *gin.Context) {
	list, err := h.admins.ListSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

// UpdateSetting handles PUT /admin/settings/:key.
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key := c.Param("key")
	if err := h.admins.UpdateSetting(c.Request.Context(), middleware.GetPrincipalID(c), key, req.Value); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}
