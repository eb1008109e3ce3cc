package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusDisbursed LoanStatus = "disbursed"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

func ParseLoanStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(s); st {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected,
		LoanStatusDisbursed, LoanStatusCompleted, LoanStatusDefaulted:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown loan status %q", ErrInvalidInput, s)
}

func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	switch s {
	case LoanStatusPending:
		return next == LoanStatusApproved || next == LoanStatusRejected
	case LoanStatusApproved:
		return next == LoanStatusDisbursed
	case LoanStatusDisbursed:
		return next == LoanStatusCompleted || next == LoanStatusDefaulted
	case LoanStatusRejected, LoanStatusCompleted, LoanStatusDefaulted:
		return false
	}
	return false
}

type Loan struct {
	ID          int32           `json:"id"`
	MemberID    int32           `json:"member_id"`
	GroupID     int32           `json:"group_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      LoanStatus      `json:"status"`
	RequestedOn time.Time       `json:"requested_on"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type LoanRepayment struct {
	ID          int32            `json:"id"`
	LoanID      int32            `json:"loan_id"`
	Amount      decimal.Decimal  `json:"amount"`
	PaymentDate time.Time        `json:"payment_date"`
	Status      CollectionStatus `json:"status"`
}
