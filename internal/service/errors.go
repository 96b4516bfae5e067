package service

import "errors"

var (
	ErrInvalidAmount           = errors.New("amount must be a positive number")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrPartnerNotFound         = errors.New("partner not found")
	ErrPartnerExists           = errors.New("partner with this phone already exists")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingNotPending       = errors.New("booking is no longer pending")
	ErrPlanNotFound            = errors.New("plan not found")
	ErrPlanExists              = errors.New("plan with this name already exists")
	ErrPlanInactive            = errors.New("plan is not active")
	ErrNoActivePlan            = errors.New("partner has no plan")
	ErrHistoryNotFound         = errors.New("plan history entry not found")
	ErrInvalidRefundTransition = errors.New("refund is not eligible for processing")
	ErrWalletBlocked           = errors.New("wallet is blocked")
	ErrTransactionIDExhausted  = errors.New("could not allocate a unique transaction id")
	ErrTopUpNotFound           = errors.New("top-up not found")
	ErrPaymentProvider         = errors.New("payment provider unavailable")
	ErrPaymentUnverified       = errors.New("payment not confirmed by provider")
	ErrInvalidCreds            = errors.New("invalid email or password")
)
