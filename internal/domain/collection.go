package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CollectionStatus string

const (
	CollectionStatusPending  CollectionStatus = "pending"
	CollectionStatusApproved CollectionStatus = "approved"
	CollectionStatusRejected CollectionStatus = "rejected"
)

func ParseCollectionStatus(s string) (CollectionStatus, error) {
	switch st := CollectionStatus(s); st {
	case CollectionStatusPending, CollectionStatusApproved, CollectionStatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown collection status %q", ErrInvalidInput, s)
}

type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeBank   PaymentMode = "bank_transfer"
	PaymentModeCheque PaymentMode = "cheque"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch m := PaymentMode(s); m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeBank, PaymentModeCheque:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown payment mode %q", ErrInvalidInput, s)
}

// Collection is a recorded member contribution for one cycle. ReceiptNo is
// the caller-supplied idempotency key.
type Collection struct {
	ID          int32            `json:"id"`
	ReceiptNo   string           `json:"receipt_no"`
	MemberID    int32            `json:"member_id"`
	GroupID     int32            `json:"group_id"`
	AgentID     int32            `json:"agent_id"`
	Cycle       int32            `json:"cycle"`
	Amount      decimal.Decimal  `json:"amount"`
	Fine        decimal.Decimal  `json:"fine"`
	DueDate     time.Time        `json:"due_date"`
	PaymentDate time.Time        `json:"payment_date"`
	PaymentMode PaymentMode      `json:"payment_mode"`
	Status      CollectionStatus `json:"status"`
	ReceiptURL  string           `json:"receipt_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (c *Collection) IsLate() bool {
	return c.Fine.IsPositive()
}

type ObligationStatus string

const (
	ObligationPaid    ObligationStatus = "paid"
	ObligationPending ObligationStatus = "pending"
	ObligationOverdue ObligationStatus = "overdue"
)

// Reconciliation is the state of one member's obligation for one cycle.
type Reconciliation struct {
	MemberID int32            `json:"member_id"`
	GroupID  int32            `json:"group_id"`
	Cycle    int32            `json:"cycle"`
	DueDate  time.Time        `json:"due_date"`
	AsOf     time.Time        `json:"as_of"`
	Status   ObligationStatus `json:"status"`
	DaysLate int              `json:"days_late"`
	Fine     decimal.Decimal  `json:"fine"`
}
