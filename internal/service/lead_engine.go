package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
	"nexo/pkg/keylock"
	"nexo/pkg/money"

	"github.com/sirupsen/logrus"
)

// Suggested top-up amounts are the required amount plus it rounded up to
// these steps.
var topUpSteps = []int64{10000, 50000, 100000}

// Rejection explains why a lead could not be accepted. It is a normal
// outcome, not an error.
type Rejection struct {
	Reason                string     `json:"reason"`
	Message               string     `json:"message"`
	BalanceCents          int64      `json:"wallet_balance_cents"`
	LeadFeeCents          int64      `json:"lead_fee_cents"`
	MinWalletBalanceCents int64      `json:"min_wallet_balance_cents"`
	RequiredTopUpCents    int64      `json:"required_top_up_cents,omitempty"`
	SuggestedTopUpsCents  []int64    `json:"suggested_top_ups_cents,omitempty"`
	LeadQuota             int        `json:"lead_quota"`
	LeadsUsed             int        `json:"leads_used"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
}

// AcceptResult is the outcome of an accepted lead.
type AcceptResult struct {
	Booking              *models.Booking           `json:"booking"`
	Transaction          *models.WalletTransaction `json:"transaction,omitempty"`
	Terms                LeadTerms                 `json:"terms"`
	BalanceAfterCents    int64                     `json:"balance_after_cents"`
	LeadAcceptancePaused bool                      `json:"lead_acceptance_paused"`
	LeadQuota            int                       `json:"lead_quota"`
	LeadsUsed            int                       `json:"leads_used"`
}

// LeadEngine gates lead acceptance on plan validity, quota and wallet balance.
type LeadEngine struct {
	store    repository.Store
	ledger   *LedgerService
	plans    *PlanService
	locks    *keylock.KeyedMutex[uint]
	notify   Notifier
	realtime Broadcaster
	log      *logrus.Logger

	Now Clock
}

func NewLeadEngine(store repository.Store, ledger *LedgerService, plans *PlanService, locks *keylock.KeyedMutex[uint], notify Notifier, realtime Broadcaster, log *logrus.Logger) *LeadEngine {
	if notify == nil {
		notify = nopNotifier{}
	}
	if realtime == nil {
		realtime = nopBroadcaster{}
	}
	return &LeadEngine{
		store:    store,
		ledger:   ledger,
		plans:    plans,
		locks:    locks,
		notify:   notify,
		realtime: realtime,
		log:      log,
		Now:      time.Now,
	}
}

// Evaluate applies the gating checks in priority order: plan expiry, then
// quota, then wallet balance. It returns nil when the lead may be accepted.
// A paused flag on its own does not block acceptance.
func Evaluate(now time.Time, partner *models.Partner, balanceCents int64, terms LeadTerms) *Rejection {
	rej := &Rejection{
		BalanceCents:          balanceCents,
		LeadFeeCents:          terms.LeadFeeCents,
		MinWalletBalanceCents: terms.MinWalletBalanceCents,
		LeadQuota:             partner.LeadQuota,
		LeadsUsed:             partner.LeadsUsed,
		ExpiresAt:             partner.ExpiresAt,
	}
	switch {
	case partner.IsExpired(now):
		rej.Reason = domain.LeadPlanExpired
		rej.Message = fmt.Sprintf("Your plan expired on %s. Renew your plan to accept new leads.",
			partner.ExpiresAt.Format("02 Jan 2006"))
	case partner.QuotaExhausted():
		rej.Reason = domain.LeadQuotaExhausted
		rej.Message = fmt.Sprintf("You have used all %d leads in your plan. Renew or upgrade your plan to accept new leads.",
			partner.LeadQuota)
	case balanceCents < terms.LeadFeeCents:
		rej.Reason = domain.LeadWalletInsufficient
		rej.RequiredTopUpCents = RequiredTopUp(balanceCents, terms)
		rej.SuggestedTopUpsCents = SuggestedTopUps(rej.RequiredTopUpCents)
		rej.Message = fmt.Sprintf("Insufficient wallet balance. Top up at least %s to accept leads.",
			formatCents(rej.RequiredTopUpCents))
	default:
		return nil
	}
	return rej
}

// RequiredTopUp is max((min+fee)-balance, min).
func RequiredTopUp(balanceCents int64, terms LeadTerms) int64 {
	required := terms.MinWalletBalanceCents + terms.LeadFeeCents - balanceCents
	if required < terms.MinWalletBalanceCents {
		required = terms.MinWalletBalanceCents
	}
	return required
}

// SuggestedTopUps returns required followed by required rounded up to each
// step, without duplicates, ascending.
func SuggestedTopUps(requiredCents int64) []int64 {
	if requiredCents <= 0 {
		return nil
	}
	seen := map[int64]bool{requiredCents: true}
	out := []int64{requiredCents}
	for _, step := range topUpSteps {
		v := money.RoundUp(requiredCents, step)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Accept tries to assign bookingID to partnerID. A non-nil Rejection means
// the attempt was refused and the partner paused; no funds moved. The whole
// accept path commits or rolls back as one transaction.
func (e *LeadEngine) Accept(ctx context.Context, bookingID, partnerID uint) (*AcceptResult, *Rejection, error) {
	unlock := e.locks.Lock(partnerID)
	defer unlock()

	var (
		result    *AcceptResult
		rejection *Rejection
		wasPaused bool
	)
	err := e.store.Transaction(ctx, func(tx repository.Store) error {
		result, rejection = nil, nil
		partner, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		wasPaused = partner.LeadAcceptancePaused
		booking, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		if booking.Status != domain.BookingStatusPending {
			return ErrBookingNotPending
		}
		wallet, err := tx.Wallets().GetOrCreate(ctx, partnerID, e.ledger.currency)
		if err != nil {
			return fmt.Errorf("load wallet: %w", err)
		}
		terms, err := e.plans.resolveTerms(ctx, tx, partner)
		if err != nil {
			return err
		}

		now := e.Now()
		if rej := Evaluate(now, partner, wallet.BalanceCents, terms); rej != nil {
			rejection = rej
			return e.reject(ctx, tx, partner, booking, rej)
		}
		if wallet.Status == domain.WalletStatusBlocked {
			return ErrWalletBlocked
		}

		booking.Status = domain.BookingStatusAssigned
		booking.PartnerID = &partnerID
		booking.AssignedAt = &now
		booking.LeadFeeCents = terms.LeadFeeCents
		if err := tx.Bookings().Update(ctx, booking); err != nil {
			return fmt.Errorf("assign booking: %w", err)
		}

		var txn *models.WalletTransaction
		if terms.LeadFeeCents > 0 {
			txn, err = e.ledger.applyEntry(ctx, tx, wallet, domain.TxTypeDebit, terms.LeadFeeCents,
				fmt.Sprintf("Lead fee for booking #%d", booking.ID), "booking:"+strconv.FormatUint(uint64(booking.ID), 10), &booking.ID)
			if err != nil {
				return err
			}
		}
		if _, err := e.plans.consume(ctx, tx, partner); err != nil {
			return fmt.Errorf("record lead consumption: %w", err)
		}
		partner.LeadAcceptancePaused = wallet.BalanceCents < terms.MinWalletBalanceCents
		if err := tx.Partners().Update(ctx, partner); err != nil {
			return fmt.Errorf("update partner: %w", err)
		}
		payload := map[string]interface{}{
			"booking_id":             booking.ID,
			"lead_fee_cents":         terms.LeadFeeCents,
			"balance_after_cents":    wallet.BalanceCents,
			"leads_used":             partner.LeadsUsed,
			"lead_quota":             partner.LeadQuota,
			"lead_acceptance_paused": partner.LeadAcceptancePaused,
		}
		if txn != nil {
			payload["transaction_id"] = txn.TransactionID
		}
		if err := emit(ctx, tx, domain.EventLeadAccepted, partnerID, payload); err != nil {
			return err
		}
		result = &AcceptResult{
			Booking:              booking,
			Transaction:          txn,
			Terms:                terms,
			BalanceAfterCents:    wallet.BalanceCents,
			LeadAcceptancePaused: partner.LeadAcceptancePaused,
			LeadQuota:            partner.LeadQuota,
			LeadsUsed:            partner.LeadsUsed,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if rejection != nil {
		e.afterReject(ctx, partnerID, bookingID, rejection, wasPaused)
		return nil, rejection, nil
	}
	e.afterAccept(ctx, partnerID, result, wasPaused)
	return result, nil, nil
}

func (e *LeadEngine) reject(ctx context.Context, tx repository.Store, partner *models.Partner, booking *models.Booking, rej *Rejection) error {
	if !partner.LeadAcceptancePaused {
		partner.LeadAcceptancePaused = true
		if err := tx.Partners().Update(ctx, partner); err != nil {
			return fmt.Errorf("pause partner: %w", err)
		}
	}
	return emit(ctx, tx, domain.EventLeadRejected, partner.ID, map[string]interface{}{
		"booking_id":           booking.ID,
		"reason":               rej.Reason,
		"wallet_balance_cents": rej.BalanceCents,
		"required_top_up":      rej.RequiredTopUpCents,
	})
}

func (e *LeadEngine) afterReject(ctx context.Context, partnerID, bookingID uint, rej *Rejection, wasPaused bool) {
	e.log.WithFields(logrus.Fields{
		"partner_id": partnerID,
		"booking_id": bookingID,
		"reason":     rej.Reason,
	}).Info("lead rejected")

	e.realtime.BroadcastToUser(partnerID, map[string]interface{}{
		"type":       domain.EventLeadRejected,
		"booking_id": bookingID,
		"rejection":  rej,
	})
	e.notify.NotifyPartner(ctx, partnerID, "Lead not accepted", rej.Message, domain.SeverityWarning)
	if rej.Reason == domain.LeadWalletInsufficient && !wasPaused && e.adminAlerts(ctx) {
		e.notify.NotifyAllAdmins(ctx, "Partner wallet insufficient",
			fmt.Sprintf("Partner #%d could not accept booking #%d: balance %s, lead fee %s.",
				partnerID, bookingID, formatCents(rej.BalanceCents), formatCents(rej.LeadFeeCents)),
			domain.SeverityWarning)
	}
}

func (e *LeadEngine) afterAccept(ctx context.Context, partnerID uint, res *AcceptResult, wasPaused bool) {
	if res.Terms.LeadFeeCents > 0 {
		meta := map[string]interface{}{
			"booking_id":   res.Booking.ID,
			"terms_source": res.Terms.Source,
		}
		if res.Transaction != nil {
			meta["transaction_id"] = res.Transaction.TransactionID
		}
		if res.Terms.PlanID != nil {
			meta["plan_id"] = *res.Terms.PlanID
		}
		recordPayment(ctx, e.store, e.log, &models.PaymentTransaction{
			PartnerID:   partnerID,
			AmountCents: res.Terms.LeadFeeCents,
			Status:      domain.PaymentStatusCompleted,
			FeeType:     domain.FeeTypeLeadFee,
			Description: fmt.Sprintf("Lead fee for booking #%d", res.Booking.ID),
			Metadata:    meta,
		})
	}

	e.log.WithFields(logrus.Fields{
		"partner_id": partnerID,
		"booking_id": res.Booking.ID,
		"fee_cents":  res.Terms.LeadFeeCents,
		"balance":    res.BalanceAfterCents,
		"paused":     res.LeadAcceptancePaused,
		"leads_used": res.LeadsUsed,
		"lead_quota": res.LeadQuota,
		"terms_from": res.Terms.Source,
	}).Info("lead accepted")

	e.realtime.BroadcastToUser(partnerID, map[string]interface{}{
		"type":       domain.EventLeadAccepted,
		"booking_id": res.Booking.ID,
		"result":     res,
	})
	e.realtime.BroadcastToUser(partnerID, map[string]interface{}{
		"type":                   domain.EventWalletUpdated,
		"balance_cents":          res.BalanceAfterCents,
		"lead_acceptance_paused": res.LeadAcceptancePaused,
	})

	e.notify.NotifyPartner(ctx, partnerID, "Lead accepted",
		fmt.Sprintf("Booking #%d is assigned to you. %s was deducted from your wallet.",
			res.Booking.ID, formatCents(res.Terms.LeadFeeCents)), domain.SeverityInfo)
	if res.LeadAcceptancePaused {
		e.notify.NotifyPartner(ctx, partnerID, "Low wallet balance",
			fmt.Sprintf("Your balance is %s, below the minimum of %s. Top up to keep receiving leads.",
				formatCents(res.BalanceAfterCents), formatCents(res.Terms.MinWalletBalanceCents)),
			domain.SeverityWarning)
		if !wasPaused && e.adminAlerts(ctx) {
			e.notify.NotifyAllAdmins(ctx, "Partner balance low",
				fmt.Sprintf("Partner #%d dropped to %s after accepting booking #%d.",
					partnerID, formatCents(res.BalanceAfterCents), res.Booking.ID),
				domain.SeverityWarning)
		}
	}
}

func (e *LeadEngine) adminAlerts(ctx context.Context) bool {
	return settingBool(ctx, e.store.Settings(), domain.SettingLowBalanceAdminAlerts, e.plans.cfg.LowBalanceAdminAlerts)
}

// Eligibility is a side-effect-free preview of the next acceptance attempt.
type Eligibility struct {
	State                string     `json:"state"`
	LeadAcceptancePaused bool       `json:"lead_acceptance_paused"`
	Terms                LeadTerms  `json:"terms"`
	BalanceCents         int64      `json:"wallet_balance_cents"`
	WalletStatus         string     `json:"wallet_status"`
	Rejection            *Rejection `json:"rejection,omitempty"`
}

func (e *LeadEngine) Eligibility(ctx context.Context, partnerID uint) (*Eligibility, error) {
	partner, err := e.store.Partners().GetByID(ctx, partnerID)
	if err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	wallet, err := e.store.Wallets().GetOrCreate(ctx, partnerID, e.ledger.currency)
	if err != nil {
		return nil, err
	}
	terms, err := e.plans.resolveTerms(ctx, e.store, partner)
	if err != nil {
		return nil, err
	}
	out := &Eligibility{
		State:                domain.LeadEligible,
		LeadAcceptancePaused: partner.LeadAcceptancePaused,
		Terms:                terms,
		BalanceCents:         wallet.BalanceCents,
		WalletStatus:         wallet.Status,
	}
	if rej := Evaluate(e.Now(), partner, wallet.BalanceCents, terms); rej != nil {
		out.State = rej.Reason
		out.Rejection = rej
	}
	return out, nil
}
