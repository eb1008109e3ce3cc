package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState   = errors.New("invalid state")
	ErrNotYetClosable = errors.New("auction not yet closable")
	ErrNoWinner       = errors.New("auction has no winner")
	ErrIneligible     = errors.New("ineligible")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
)

// Stable rejection reasons for loan requests and bids.
const (
	ReasonRecentApprovedLoan = "recent_approved_loan"
	ReasonNotGroupMember     = "not_group_member"
	ReasonAlreadyWon         = "already_won"
)

// IneligibleError carries the stable reason a loan request was refused.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("ineligible: %s", e.Reason)
}

func (e *IneligibleError) Unwrap() error {
	return ErrIneligible
}

// ErrorCode maps an error to the machine-readable code exposed by the API.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrNotYetClosable):
		return "NOT_YET_CLOSABLE"
	case errors.Is(err, ErrNoWinner):
		return "NO_WINNER"
	case errors.Is(err, ErrIneligible):
		return "INELIGIBLE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "INTERNAL"
	}
}
