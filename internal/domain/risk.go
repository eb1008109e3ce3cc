package domain

import (
	"fmt"
	"time"
)

type RiskTier string

const (
	RiskTierNormal RiskTier = "normal"
	RiskTierHigh   RiskTier = "high"
)

func ParseRiskTier(s string) (RiskTier, error) {
	switch t := RiskTier(s); t {
	case RiskTierNormal, RiskTierHigh:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown risk tier %q", ErrInvalidInput, s)
}

type SubjectType string

const (
	SubjectUser  SubjectType = "user"
	SubjectAgent SubjectType = "agent"
)

type FlagStatus string

const (
	FlagStatusOpen     FlagStatus = "open"
	FlagStatusResolved FlagStatus = "resolved"
)

const RiskFlagReasonHigh = "high risk: missed payments or repeated fines"

// RiskFlag is an append-only log entry; resolving does not delete it.
type RiskFlag struct {
	ID          int32       `json:"id"`
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   int32       `json:"subject_id"`
	Reason      string      `json:"reason"`
	Status      FlagStatus  `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}

type RiskScore struct {
	MemberID               int32    `json:"member_id"`
	Tier                   RiskTier `json:"tier"`
	MissedPayments         int      `json:"missed_payments"`
	ConsecutiveRecentFines int      `json:"consecutive_recent_fines"`
}

// RiskEvaluation is a score plus the flag appended on a normal->high transition.
type RiskEvaluation struct {
	Score        RiskScore `json:"score"`
	PreviousTier RiskTier  `json:"previous_tier"`
	Flag         *RiskFlag `json:"flag,omitempty"`
}
