package reward

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotFoundError reports an unknown customer, slot or referral code.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func customerNotFound(id uint64) *NotFoundError {
	return &NotFoundError{Kind: "customer", Key: fmt.Sprint(id)}
}

// InsufficientFundsError is returned by settlement when the request exceeds unsettled rewards.
type InsufficientFundsError struct {
	CustomerID uint64
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("customer %d requested %s but only %s rewards are available",
		e.CustomerID, e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

// AlreadyClaimedError is returned when the daily login reward was taken earlier the same day.
type AlreadyClaimedError struct {
	CustomerID uint64
	LastLogin  time.Time
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("customer %d already claimed the daily login reward at %s",
		e.CustomerID, e.LastLogin.Format(time.RFC3339))
}

type InvalidAmountError struct {
	Amount decimal.Decimal
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: %s", e.Amount.String(), e.Reason)
}

// ConcurrentUpdateError means the ledger row changed under the operation; nothing was written.
type ConcurrentUpdateError struct {
	CustomerID uint64
}

func (e *ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("customer %d ledger changed concurrently", e.CustomerID)
}

type DuplicatePhoneError struct {
	Phone string
}

func (e *DuplicatePhoneError) Error() string {
	return fmt.Sprintf("phone %s already registered", e.Phone)
}

// ReferrerMissingWarning is logged, never returned: commission loss must not block the ledger.
type ReferrerMissingWarning struct {
	CustomerID uint64
	ReferrerID uint64
	Kind       string
}

func (w ReferrerMissingWarning) Error() string {
	return fmt.Sprintf("referrer %d of customer %d no longer exists, %s commission skipped",
		w.ReferrerID, w.CustomerID, w.Kind)
}
