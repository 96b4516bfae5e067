package domain

const (
	RolePartner = "PARTNER"
	RoleAdmin   = "ADMIN"
)

const (
	WalletStatusActive  = "ACTIVE"
	WalletStatusBlocked = "BLOCKED"
)

const (
	TxTypeCredit = "CREDIT"
	TxTypeDebit  = "DEBIT"
)

const (
	BookingStatusPending   = "PENDING"
	BookingStatusAssigned  = "ASSIGNED"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCancelled = "CANCELLED"
)

// Plan subscription states, derived from current_plan_id and expires_at.
const (
	SubscriptionUnsubscribed = "UNSUBSCRIBED"
	SubscriptionActive       = "ACTIVE"
	SubscriptionExpired      = "EXPIRED"
)

const (
	HistoryActionSubscribed = "SUBSCRIBED"
	HistoryActionRenewed    = "RENEWED"
	HistoryActionRemoved    = "REMOVED"
)

const (
	RefundPending   = "PENDING"
	RefundEligible  = "ELIGIBLE"
	RefundProcessed = "PROCESSED"

	// RefundNone marks entries that owe nothing: REMOVED entries and
	// periods that ended with the guarantee met.
	RefundNone = "NONE"
)

// Lead-gating states, in the order they are checked.
const (
	LeadPlanExpired        = "PLAN_EXPIRED"
	LeadQuotaExhausted     = "QUOTA_EXHAUSTED"
	LeadWalletInsufficient = "WALLET_INSUFFICIENT"
	LeadEligible           = "ELIGIBLE"
)

// Where a partner's lead terms were resolved from.
const (
	TermsCurrentPlan  = "CURRENT_PLAN"
	TermsDefaultPlan  = "DEFAULT_PLAN"
	TermsFallbackPlan = "FALLBACK_PLAN"
	TermsFreeTier     = "FREE_TIER"
)

// Reporting ledger fee types.
const (
	FeeTypeLeadFee    = "LEAD_FEE"
	FeeTypePlanFee    = "PLAN_FEE"
	FeeTypeTopUp      = "TOP_UP"
	FeeTypeAdjustment = "ADJUSTMENT"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	RecipientPartner = "PARTNER"
	RecipientAdmin   = "ADMIN"
)

const (
	OutboxPending   = "PENDING"
	OutboxPublished = "PUBLISHED"
	OutboxFailed    = "FAILED"
)

// Outbox topics / websocket event types.
const (
	EventLeadAccepted  = "lead.accepted"
	EventLeadRejected  = "lead.rejected"
	EventWalletUpdated = "wallet.updated"
	EventPlanChanged   = "plan.changed"
	EventPaused        = "partner.lead_acceptance_paused"
	EventRefundUpdated = "plan.refund_updated"
	EventNotification  = "notification"
)

// System setting keys.
const (
	SettingFreeTierLeadFee       = "free_tier_lead_fee_cents"
	SettingFreeTierMinBalance    = "free_tier_min_wallet_balance_cents"
	SettingLowBalanceAdminAlerts = "low_balance_admin_alerts"
)

const (
	DefaultLeadFeeCents          int64 = 5000
	DefaultMinWalletBalanceCents int64 = 2000
	DefaultCurrency                    = "INR"

	// PlanHistoryLimit caps the per-partner plan history.
	PlanHistoryLimit = 24
)
