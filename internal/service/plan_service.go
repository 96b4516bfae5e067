package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexo/config"
	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
	"nexo/pkg/keylock"
	"nexo/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LeadTerms are the fee and minimum balance that apply to a partner's next lead.
type LeadTerms struct {
	PlanID                *uint  `json:"plan_id"`
	PlanName              string `json:"plan_name"`
	LeadFeeCents          int64  `json:"lead_fee_cents"`
	MinWalletBalanceCents int64  `json:"min_wallet_balance_cents"`
	Source                string `json:"source"`
}

// Subscription is a partner's plan state at a point in time.
type Subscription struct {
	PartnerID            uint                     `json:"partner_id"`
	State                string                   `json:"state"`
	Plan                 *models.Plan             `json:"plan"`
	LeadQuota            int                      `json:"lead_quota"`
	LeadsUsed            int                      `json:"leads_used"`
	SubscribedAt         *time.Time               `json:"subscribed_at"`
	ExpiresAt            *time.Time               `json:"expires_at"`
	LeadAcceptancePaused bool                     `json:"lead_acceptance_paused"`
	Entry                *models.PlanHistoryEntry `json:"history_entry,omitempty"`
}

// PlanService manages the plan catalog and partner subscriptions.
type PlanService struct {
	store  repository.Store
	locks  *keylock.KeyedMutex[uint]
	notify Notifier
	cfg    *config.LeadsConfig
	log    *logrus.Logger

	Now Clock
}

func NewPlanService(store repository.Store, locks *keylock.KeyedMutex[uint], notify Notifier, cfg *config.LeadsConfig, log *logrus.Logger) *PlanService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &PlanService{store: store, locks: locks, notify: notify, cfg: cfg, log: log, Now: time.Now}
}

// ---- Catalog ----

// PlanInput is the writable part of a plan.
type PlanInput struct {
	Name                  string          `json:"name" binding:"required"`
	Description           string          `json:"description"`
	PriceCents            int64           `json:"price_cents" binding:"min=0"`
	LeadsGuaranteed       int             `json:"leads_guaranteed" binding:"min=0"`
	CommissionRate        decimal.Decimal `json:"commission_rate"`
	LeadFeeCents          int64           `json:"lead_fee_cents" binding:"min=0"`
	MinWalletBalanceCents int64           `json:"min_wallet_balance_cents" binding:"min=0"`
	ValidityMonths        int             `json:"validity_months" binding:"min=0"`
	IsActive              *bool           `json:"is_active"`
	IsDefault             bool            `json:"is_default"`
}

func (in *PlanInput) apply(p *models.Plan) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.PriceCents < 0 || in.LeadsGuaranteed < 0 || in.LeadFeeCents < 0 ||
		in.MinWalletBalanceCents < 0 || in.ValidityMonths < 0 || in.CommissionRate.IsNegative() {
		return ErrInvalidRequest
	}
	if in.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidRequest
	}
	p.Name = name
	p.Description = in.Description
	p.PriceCents = in.PriceCents
	p.LeadsGuaranteed = in.LeadsGuaranteed
	p.CommissionRate = in.CommissionRate
	p.LeadFeeCents = in.LeadFeeCents
	p.MinWalletBalanceCents = in.MinWalletBalanceCents
	p.ValidityMonths = in.ValidityMonths
	if p.ValidityMonths == 0 {
		p.ValidityMonths = 1
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.IsDefault = in.IsDefault
	return nil
}

// CreatePlan adds a catalog plan. Saving it as default clears the flag elsewhere.
func (s *PlanService) CreatePlan(ctx context.Context, in PlanInput) (*models.Plan, error) {
	plan := &models.Plan{IsActive: true}
	if err := in.apply(plan); err != nil {
		return nil, err
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Plans().Create(ctx, plan); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrPlanExists
			}
			return err
		}
		if plan.IsDefault {
			return tx.Plans().ClearDefaultExcept(ctx, plan.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan replaces a plan's terms. Subscribed partners pick up the new
// lead fee and minimum balance immediately; history snapshots keep the old ones.
func (s *PlanService) UpdatePlan(ctx context.Context, id uint, in PlanInput) (*models.Plan, error) {
	var plan *models.Plan
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Plans().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrPlanNotFound)
		}
		if err := in.apply(p); err != nil {
			return err
		}
		if err := tx.Plans().Update(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrPlanExists
			}
			return err
		}
		if p.IsDefault {
			if err := tx.Plans().ClearDefaultExcept(ctx, p.ID); err != nil {
				return err
			}
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) GetPlan(ctx context.Context, id uint) (*models.Plan, error) {
	p, err := s.store.Plans().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrPlanNotFound)
	}
	return p, nil
}

func (s *PlanService) ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	return s.store.Plans().List(ctx, activeOnly)
}

// ---- Terms ----

// GetCurrentPlan returns the partner's plan, or nil on the free tier.
func (s *PlanService) GetCurrentPlan(ctx context.Context, partnerID uint) (*models.Plan, error) {
	partner, err := s.store.Partners().GetByID(ctx, partnerID)
	if err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	if partner.CurrentPlanID == nil {
		return nil, nil
	}
	plan, err := s.store.Plans().GetByID(ctx, *partner.CurrentPlanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return plan, err
}

// ResolveTerms returns the lead terms that currently apply to the partner.
func (s *PlanService) ResolveTerms(ctx context.Context, partnerID uint) (LeadTerms, error) {
	partner, err := s.store.Partners().GetByID(ctx, partnerID)
	if err != nil {
		return LeadTerms{}, notFound(err, ErrPartnerNotFound)
	}
	return s.resolveTerms(ctx, s.store, partner)
}

// resolveTerms walks current plan, default plan, the configured fallback
// plan and finally the free-tier settings. Nothing is persisted.
func (s *PlanService) resolveTerms(ctx context.Context, st repository.Store, partner *models.Partner) (LeadTerms, error) {
	if partner.CurrentPlanID != nil {
		plan, err := st.Plans().GetByID(ctx, *partner.CurrentPlanID)
		switch {
		case err == nil:
			return termsOf(plan, domain.TermsCurrentPlan), nil
		case !errors.Is(err, repository.ErrNotFound):
			return LeadTerms{}, fmt.Errorf("load current plan: %w", err)
		}
	}
	plan, err := st.Plans().GetDefault(ctx)
	switch {
	case err == nil && plan.IsActive:
		return termsOf(plan, domain.TermsDefaultPlan), nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return LeadTerms{}, fmt.Errorf("load default plan: %w", err)
	}
	if s.cfg.FallbackPlanName != "" {
		plan, err := st.Plans().GetByName(ctx, s.cfg.FallbackPlanName)
		switch {
		case err == nil && plan.IsActive:
			return termsOf(plan, domain.TermsFallbackPlan), nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return LeadTerms{}, fmt.Errorf("load fallback plan: %w", err)
		}
	}
	return LeadTerms{
		PlanName:              "Free",
		LeadFeeCents:          settingInt64(ctx, st.Settings(), domain.SettingFreeTierLeadFee, s.freeTierFee()),
		MinWalletBalanceCents: settingInt64(ctx, st.Settings(), domain.SettingFreeTierMinBalance, s.freeTierMin()),
		Source:                domain.TermsFreeTier,
	}, nil
}

func (s *PlanService) freeTierFee() int64 {
	if s.cfg.FreeTierLeadFeeCents > 0 {
		return s.cfg.FreeTierLeadFeeCents
	}
	return domain.DefaultLeadFeeCents
}

func (s *PlanService) freeTierMin() int64 {
	if s.cfg.FreeTierMinBalanceCents > 0 {
		return s.cfg.FreeTierMinBalanceCents
	}
	return domain.DefaultMinWalletBalanceCents
}

func termsOf(p *models.Plan, source string) LeadTerms {
	id := p.ID
	return LeadTerms{
		PlanID:                &id,
		PlanName:              p.Name,
		LeadFeeCents:          p.LeadFeeCents,
		MinWalletBalanceCents: p.MinWalletBalanceCents,
		Source:                source,
	}
}

// ---- Subscription lifecycle ----

func (s *PlanService) GetSubscription(ctx context.Context, partnerID uint) (*Subscription, error) {
	partner, err := s.store.Partners().GetByID(ctx, partnerID)
	if err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	return s.subscriptionOf(ctx, s.store, partner)
}

func (s *PlanService) subscriptionOf(ctx context.Context, st repository.Store, partner *models.Partner) (*Subscription, error) {
	sub := &Subscription{
		PartnerID:            partner.ID,
		State:                partner.SubscriptionState(s.Now()),
		LeadQuota:            partner.LeadQuota,
		LeadsUsed:            partner.LeadsUsed,
		SubscribedAt:         partner.SubscribedAt,
		ExpiresAt:            partner.ExpiresAt,
		LeadAcceptancePaused: partner.LeadAcceptancePaused,
	}
	if partner.CurrentPlanID == nil {
		return sub, nil
	}
	plan, err := st.Plans().GetByID(ctx, *partner.CurrentPlanID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	sub.Plan = plan
	entry, err := st.PlanHistory().Latest(ctx, partner.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	sub.Entry = entry
	return sub, nil
}

// Subscribe puts the partner on planID with a fresh quota and period.
// Switching plans is allowed from any state.
func (s *PlanService) Subscribe(ctx context.Context, partnerID, planID uint) (*Subscription, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	var (
		sub  *Subscription
		plan *models.Plan
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		partner, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		plan, err = tx.Plans().GetByID(ctx, planID)
		if err != nil {
			return notFound(err, ErrPlanNotFound)
		}
		if !plan.IsActive {
			return ErrPlanInactive
		}
		now := s.Now()
		// the outgoing period ends here, expired or not
		if partner.CurrentPlanID != nil {
			if _, err := s.settleRefund(ctx, tx, partner, true, now); err != nil {
				return err
			}
		}
		entry, err := s.startPeriod(ctx, tx, partner, plan, domain.HistoryActionSubscribed, now)
		if err != nil {
			return err
		}
		if err := s.applyPause(ctx, tx, partner, plan.MinWalletBalanceCents); err != nil {
			return err
		}
		if err := tx.Partners().Update(ctx, partner); err != nil {
			return err
		}
		if err := emit(ctx, tx, domain.EventPlanChanged, partnerID, map[string]interface{}{
			"action":     domain.HistoryActionSubscribed,
			"plan_id":    plan.ID,
			"plan_name":  plan.Name,
			"lead_quota": partner.LeadQuota,
			"expires_at": partner.ExpiresAt,
		}); err != nil {
			return err
		}
		sub, err = s.subscriptionOf(ctx, tx, partner)
		if err != nil {
			return err
		}
		sub.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan.PriceCents > 0 {
		recordPayment(ctx, s.store, s.log, &models.PaymentTransaction{
			PartnerID:   partnerID,
			AmountCents: plan.PriceCents,
			Status:      domain.PaymentStatusCompleted,
			FeeType:     domain.FeeTypePlanFee,
			Description: "Plan subscription: " + plan.Name,
			Metadata:    map[string]interface{}{"plan_id": plan.ID, "history_id": sub.Entry.ID},
		})
	}
	s.notify.NotifyPartner(ctx, partnerID, "Plan activated",
		fmt.Sprintf("You are now on the %s plan with %d guaranteed leads until %s.",
			plan.Name, plan.LeadsGuaranteed, sub.ExpiresAt.Format("02 Jan 2006")), domain.SeverityInfo)
	return sub, nil
}

// Renew extends an active subscription by one period, keeping usage, or
// restarts an expired one from now with usage reset.
func (s *PlanService) Renew(ctx context.Context, partnerID uint) (*Subscription, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	var (
		sub  *Subscription
		plan *models.Plan
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		partner, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		if partner.CurrentPlanID == nil {
			return ErrNoActivePlan
		}
		plan, err = tx.Plans().GetByID(ctx, *partner.CurrentPlanID)
		if err != nil {
			return notFound(err, ErrPlanNotFound)
		}
		if !plan.IsActive {
			return ErrPlanInactive
		}
		now := s.Now()
		var entry *models.PlanHistoryEntry
		if partner.IsExpired(now) {
			if _, err := s.settleRefund(ctx, tx, partner, false, now); err != nil {
				return err
			}
			entry, err = s.startPeriod(ctx, tx, partner, plan, domain.HistoryActionRenewed, now)
			if err != nil {
				return err
			}
		} else {
			from := now
			if partner.ExpiresAt != nil {
				from = *partner.ExpiresAt
			}
			end := plan.PeriodEnd(from)
			partner.ExpiresAt = &end
			entry, err = tx.PlanHistory().Latest(ctx, partnerID)
			switch {
			case err == nil:
				entry.ExpiresAt = &end
				if err := tx.PlanHistory().Update(ctx, entry); err != nil {
					return err
				}
			case errors.Is(err, repository.ErrNotFound):
				entry = nil
			default:
				return err
			}
		}
		if err := s.applyPause(ctx, tx, partner, plan.MinWalletBalanceCents); err != nil {
			return err
		}
		if err := tx.Partners().Update(ctx, partner); err != nil {
			return err
		}
		if err := emit(ctx, tx, domain.EventPlanChanged, partnerID, map[string]interface{}{
			"action":     domain.HistoryActionRenewed,
			"plan_id":    plan.ID,
			"lead_quota": partner.LeadQuota,
			"leads_used": partner.LeadsUsed,
			"expires_at": partner.ExpiresAt,
		}); err != nil {
			return err
		}
		sub, err = s.subscriptionOf(ctx, tx, partner)
		if err != nil {
			return err
		}
		sub.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan.PriceCents > 0 {
		recordPayment(ctx, s.store, s.log, &models.PaymentTransaction{
			PartnerID:   partnerID,
			AmountCents: plan.PriceCents,
			Status:      domain.PaymentStatusCompleted,
			FeeType:     domain.FeeTypePlanFee,
			Description: "Plan renewal: " + plan.Name,
			Metadata:    map[string]interface{}{"plan_id": plan.ID},
		})
	}
	s.notify.NotifyPartner(ctx, partnerID, "Plan renewed",
		fmt.Sprintf("Your %s plan now runs until %s.", plan.Name, sub.ExpiresAt.Format("02 Jan 2006")),
		domain.SeverityInfo)
	return sub, nil
}

// startPeriod resets quota and usage, starts a new validity period at now
// and appends the matching history entry.
func (s *PlanService) startPeriod(ctx context.Context, tx repository.Store, partner *models.Partner, plan *models.Plan, action string, now time.Time) (*models.PlanHistoryEntry, error) {
	end := plan.PeriodEnd(now)
	planID := plan.ID
	partner.CurrentPlanID = &planID
	partner.LeadQuota = plan.LeadsGuaranteed
	partner.LeadsUsed = 0
	partner.SubscribedAt = &now
	partner.ExpiresAt = &end

	entry := models.NewPlanHistoryEntry(partner.ID, plan, action, domain.RefundPending)
	entry.SubscribedAt = &now
	entry.ExpiresAt = &end
	if err := s.appendHistory(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *PlanService) appendHistory(ctx context.Context, tx repository.Store, entry *models.PlanHistoryEntry) error {
	if err := tx.PlanHistory().Append(ctx, entry); err != nil {
		return fmt.Errorf("append plan history: %w", err)
	}
	return tx.PlanHistory().TrimToRecent(ctx, entry.PartnerID, domain.PlanHistoryLimit)
}

// applyPause sets the pause flag from the wallet balance and min.
func (s *PlanService) applyPause(ctx context.Context, tx repository.Store, partner *models.Partner, minBalance int64) error {
	wallet, err := tx.Wallets().GetOrCreate(ctx, partner.ID, s.cfg.Currency)
	if err != nil {
		return err
	}
	partner.LeadAcceptancePaused = wallet.BalanceCents < minBalance
	return nil
}

// settleRefund moves the latest entry's refund out of PENDING once its period
// is over. force treats the period as ended regardless of the clock.
func (s *PlanService) settleRefund(ctx context.Context, tx repository.Store, partner *models.Partner, force bool, now time.Time) (*models.PlanHistoryEntry, error) {
	if !force && !partner.IsExpired(now) {
		return nil, nil
	}
	entry, err := tx.PlanHistory().Latest(ctx, partner.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry.RefundStatus != domain.RefundPending {
		return nil, nil
	}
	entry.LeadsConsumed = partner.LeadsUsed
	if partner.LeadsUsed < entry.LeadsGuaranteed {
		entry.RefundStatus = domain.RefundEligible
	} else {
		entry.RefundStatus = domain.RefundNone
	}
	if err := tx.PlanHistory().Update(ctx, entry); err != nil {
		return nil, err
	}
	if err := emit(ctx, tx, domain.EventRefundUpdated, partner.ID, map[string]interface{}{
		"history_id":       entry.ID,
		"refund_status":    entry.RefundStatus,
		"leads_consumed":   entry.LeadsConsumed,
		"leads_guaranteed": entry.LeadsGuaranteed,
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordLeadConsumption counts one lead against the partner's quota.
// Free-tier partners are not counted.
func (s *PlanService) RecordLeadConsumption(ctx context.Context, partnerID uint) error {
	unlock := s.locks.Lock(partnerID)
	defer unlock()
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		partner, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		counted, err := s.consume(ctx, tx, partner)
		if err != nil || !counted {
			return err
		}
		return tx.Partners().Update(ctx, partner)
	})
}

// consume increments usage on partner and the latest history entry. The
// caller persists partner.
func (s *PlanService) consume(ctx context.Context, tx repository.Store, partner *models.Partner) (bool, error) {
	if partner.CurrentPlanID == nil {
		return false, nil
	}
	partner.LeadsUsed++
	entry, err := tx.PlanHistory().Latest(ctx, partner.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	entry.LeadsConsumed++
	if err := tx.PlanHistory().Update(ctx, entry); err != nil {
		return false, err
	}
	return true, nil
}

// AdminRemove drops the partner to the free tier. The period counts as
// ended for refund purposes and a REMOVED entry records prior consumption.
func (s *PlanService) AdminRemove(ctx context.Context, partnerID uint, note string) (*Subscription, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	var (
		sub      *Subscription
		planName string
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		partner, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		if partner.CurrentPlanID == nil {
			return ErrNoActivePlan
		}
		now := s.Now()
		if _, err := s.settleRefund(ctx, tx, partner, true, now); err != nil {
			return err
		}

		removed := &models.PlanHistoryEntry{
			PartnerID:     partnerID,
			PlanID:        partner.CurrentPlanID,
			Action:        domain.HistoryActionRemoved,
			SubscribedAt:  partner.SubscribedAt,
			ExpiresAt:     &now,
			LeadsConsumed: partner.LeadsUsed,
			RefundStatus:  domain.RefundNone,
			Note:          note,
		}
		plan, err := tx.Plans().GetByID(ctx, *partner.CurrentPlanID)
		switch {
		case err == nil:
			planName = plan.Name
			removed.PlanName = plan.Name
			removed.PriceCents = plan.PriceCents
			removed.LeadsGuaranteed = plan.LeadsGuaranteed
			removed.CommissionRate = plan.CommissionRate
			removed.LeadFeeCents = plan.LeadFeeCents
			removed.MinWalletBalanceCents = plan.MinWalletBalanceCents
			removed.ValidityMonths = plan.ValidityMonths
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if err := s.appendHistory(ctx, tx, removed); err != nil {
			return err
		}

		partner.CurrentPlanID = nil
		partner.LeadQuota = 0
		partner.SubscribedAt = nil
		partner.ExpiresAt = nil
		terms, err := s.resolveTerms(ctx, tx, partner)
		if err != nil {
			return err
		}
		if err := s.applyPause(ctx, tx, partner, terms.MinWalletBalanceCents); err != nil {
			return err
		}
		if err := tx.Partners().Update(ctx, partner); err != nil {
			return err
		}
		if err := emit(ctx, tx, domain.EventPlanChanged, partnerID, map[string]interface{}{
			"action":         domain.HistoryActionRemoved,
			"leads_consumed": removed.LeadsConsumed,
		}); err != nil {
			return err
		}
		sub, err = s.subscriptionOf(ctx, tx, partner)
		if err != nil {
			return err
		}
		sub.Entry = removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.NotifyPartner(ctx, partnerID, "Plan removed",
		fmt.Sprintf("Your %s plan was removed. Free-tier lead terms now apply.", planName), domain.SeverityWarning)
	return sub, nil
}

// MarkRefundProcessed moves an ELIGIBLE refund to PROCESSED.
func (s *PlanService) MarkRefundProcessed(ctx context.Context, partnerID, entryID uint) (*models.PlanHistoryEntry, error) {
	var entry *models.PlanHistoryEntry
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		e, err := tx.PlanHistory().GetByID(ctx, entryID)
		if err != nil {
			return notFound(err, ErrHistoryNotFound)
		}
		if e.PartnerID != partnerID {
			return ErrHistoryNotFound
		}
		if e.RefundStatus != domain.RefundEligible ||
			(e.Action != domain.HistoryActionSubscribed && e.Action != domain.HistoryActionRenewed) {
			return ErrInvalidRefundTransition
		}
		now := s.Now()
		e.RefundStatus = domain.RefundProcessed
		e.RefundProcessedAt = &now
		if err := tx.PlanHistory().Update(ctx, e); err != nil {
			return err
		}
		entry = e
		return emit(ctx, tx, domain.EventRefundUpdated, partnerID, map[string]interface{}{
			"history_id":    e.ID,
			"refund_status": e.RefundStatus,
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.NotifyPartner(ctx, partnerID, "Refund processed",
		fmt.Sprintf("Your refund for the %s plan (%d of %d leads delivered) has been processed.",
			entry.PlanName, entry.LeadsConsumed, entry.LeadsGuaranteed), domain.SeverityInfo)
	return entry, nil
}

func (s *PlanService) History(ctx context.Context, partnerID uint) ([]models.PlanHistoryEntry, error) {
	if _, err := s.store.Partners().GetByID(ctx, partnerID); err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	return s.store.PlanHistory().ListByPartner(ctx, partnerID)
}

// ---- Scheduled ----

// SettleExpired settles refunds of lapsed subscriptions and pauses their
// partners. It returns how many partners changed.
func (s *PlanService) SettleExpired(ctx context.Context) (int, error) {
	now := s.Now()
	expired, err := s.store.Partners().ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, p := range expired {
		entry, didChange, err := s.settleOne(ctx, p.ID, now)
		if err != nil {
			s.log.WithError(err).WithField("partner_id", p.ID).Error("failed to settle expired plan")
			continue
		}
		if !didChange {
			continue
		}
		changed++
		msg := "Your plan has expired. Renew it to keep receiving leads."
		if entry != nil && entry.RefundStatus == domain.RefundEligible {
			msg = fmt.Sprintf("Your %s plan expired with %d of %d guaranteed leads delivered. You are eligible for a refund.",
				entry.PlanName, entry.LeadsConsumed, entry.LeadsGuaranteed)
		}
		s.notify.NotifyPartner(ctx, p.ID, "Plan expired", msg, domain.SeverityWarning)
	}
	if changed > 0 {
		s.log.WithField("count", changed).Info("settled expired plans")
	}
	return changed, nil
}

func (s *PlanService) settleOne(ctx context.Context, partnerID uint, now time.Time) (*models.PlanHistoryEntry, bool, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	var (
		entry   *models.PlanHistoryEntry
		changed bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		partner, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return err
		}
		if partner.CurrentPlanID == nil || !partner.IsExpired(now) {
			return nil
		}
		entry, err = s.settleRefund(ctx, tx, partner, false, now)
		if err != nil {
			return err
		}
		changed = entry != nil
		if !partner.LeadAcceptancePaused {
			partner.LeadAcceptancePaused = true
			if err := tx.Partners().Update(ctx, partner); err != nil {
				return err
			}
			changed = true
			return emit(ctx, tx, domain.EventPaused, partnerID, map[string]interface{}{
				"lead_acceptance_paused": true,
				"reason":                 domain.LeadPlanExpired,
			})
		}
		return nil
	})
	return entry, changed, err
}

// RemindExpiring notifies partners whose plan lapses within the configured
// number of days.
func (s *PlanService) RemindExpiring(ctx context.Context) (int, error) {
	days := s.cfg.ExpiryReminderDays
	if days <= 0 {
		return 0, nil
	}
	now := s.Now()
	partners, err := s.store.Partners().ListExpiringBetween(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return 0, err
	}
	for _, p := range partners {
		remaining := ""
		if p.LeadQuota > 0 {
			remaining = fmt.Sprintf(" %d of %d guaranteed leads used.", p.LeadsUsed, p.LeadQuota)
		}
		s.notify.NotifyPartner(ctx, p.ID, "Plan expiring soon",
			fmt.Sprintf("Your plan expires on %s.%s Renew to keep receiving leads.",
				p.ExpiresAt.Format("02 Jan 2006"), remaining), domain.SeverityInfo)
	}
	return len(partners), nil
}

// formatCents renders cents for messages.
func formatCents(cents int64) string {
	return "₹" + money.Format(cents)
}
