package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"nexo/config"
	"nexo/internal/auth"
	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminService covers back-office login, partner onboarding, reporting and settings.
type AdminService struct {
	store repository.Store
	plans *PlanService
	cfg   *config.Config
	log   *logrus.Logger
}

func NewAdminService(store repository.Store, plans *PlanService, cfg *config.Config, log *logrus.Logger) *AdminService {
	return &AdminService{store: store, plans: plans, cfg: cfg, log: log}
}

func (s *AdminService) Login(ctx context.Context, email, password string) (*models.Admin, string, error) {
	a, err := s.store.Admins().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCreds
		}
		return nil, "", err
	}
	if !a.IsActive {
		return nil, "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCreds
	}
	token, err := auth.GenerateAccessToken(&s.cfg.JWT, a.ID, domain.RoleAdmin)
	if err != nil {
		return nil, "", err
	}
	return a, token, nil
}

type PartnerInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email"`
	City  string `json:"city"`
}

// CreatePartner onboards a partner on the free tier with an empty wallet.
// The partner starts paused when the resolved minimum balance is above zero.
func (s *AdminService) CreatePartner(ctx context.Context, in PartnerInput) (*models.Partner, error) {
	p := &models.Partner{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
		Email: strings.TrimSpace(in.Email),
		City:  strings.TrimSpace(in.City),
	}
	if p.Name == "" || p.Phone == "" {
		return nil, ErrInvalidRequest
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Partners().Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrPartnerExists
			}
			return err
		}
		wallet, err := tx.Wallets().GetOrCreate(ctx, p.ID, s.cfg.Leads.Currency)
		if err != nil {
			return err
		}
		terms, err := s.plans.resolveTerms(ctx, tx, p)
		if err != nil {
			return err
		}
		if paused := wallet.BalanceCents < terms.MinWalletBalanceCents; paused {
			p.LeadAcceptancePaused = true
			return tx.Partners().Update(ctx, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"partner_id": p.ID, "city": p.City}).Info("partner created")
	return p, nil
}

// PartnerDetail is a partner with its wallet and subscription.
type PartnerDetail struct {
	Partner      *models.Partner `json:"partner"`
	Wallet       *models.Wallet  `json:"wallet"`
	Subscription *Subscription   `json:"subscription"`
	Terms        LeadTerms       `json:"terms"`
}

func (s *AdminService) GetPartner(ctx context.Context, id uint) (*PartnerDetail, error) {
	p, err := s.store.Partners().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	w, err := s.store.Wallets().GetOrCreate(ctx, id, s.cfg.Leads.Currency)
	if err != nil {
		return nil, err
	}
	sub, err := s.plans.subscriptionOf(ctx, s.store, p)
	if err != nil {
		return nil, err
	}
	terms, err := s.plans.resolveTerms(ctx, s.store, p)
	if err != nil {
		return nil, err
	}
	return &PartnerDetail{Partner: p, Wallet: w, Subscription: sub, Terms: terms}, nil
}

func (s *AdminService) ListPartners(ctx context.Context, search string, page, limit int) ([]models.Partner, int64, error) {
	return s.store.Partners().List(ctx, search, page, limit)
}

func (s *AdminService) ListPayments(ctx context.Context, partnerID uint, feeType string, page, limit int) ([]models.PaymentTransaction, int64, error) {
	return s.store.Payments().List(ctx, partnerID, strings.ToUpper(feeType), page, limit)
}

// RecordAdjustment notes a manual wallet change in the reporting ledger.
func (s *AdminService) RecordAdjustment(ctx context.Context, adminID uint, t *models.WalletTransaction) {
	recordPayment(ctx, s.store, s.log, &models.PaymentTransaction{
		PartnerID:   t.PartnerID,
		AmountCents: t.SignedAmount(),
		Status:      domain.PaymentStatusCompleted,
		FeeType:     domain.FeeTypeAdjustment,
		Description: t.Description,
		Metadata: map[string]interface{}{
			"transaction_id": t.TransactionID,
			"admin_id":       adminID,
		},
	})
}

func (s *AdminService) ListSettings(ctx context.Context) ([]models.SystemSetting, error) {
	return s.store.Settings().GetAll(ctx)
}

// UpdateSetting validates known keys before storing.
func (s *AdminService) UpdateSetting(ctx context.Context, adminID uint, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return ErrInvalidRequest
	}
	switch key {
	case domain.SettingFreeTierLeadFee, domain.SettingFreeTierMinBalance:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return ErrInvalidRequest
		}
	case domain.SettingLowBalanceAdminAlerts:
		if _, err := strconv.ParseBool(value); err != nil {
			return ErrInvalidRequest
		}
	}
	return s.store.Settings().Set(ctx, key, value, &adminID)
}
