package utils

import (
	"sort"

	"chitfund-backend/internal/domain"
)

// RiskThresholds decide when a member is high risk.
type RiskThresholds struct {
	MissedPayments         int
	ConsecutiveRecentFines int
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{MissedPayments: 2, ConsecutiveRecentFines: 3}
}

// ScoreHistory classifies a member from their collection history. Rejected
// collections are ignored; the rest are ordered by payment date.
func ScoreHistory(memberID int32, history []domain.Collection, th RiskThresholds) domain.RiskScore {
	ordered := make([]domain.Collection, 0, len(history))
	for _, c := range history {
		if c.Status == domain.CollectionStatusRejected {
			continue
		}
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PaymentDate.Equal(ordered[j].PaymentDate) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].PaymentDate.Before(ordered[j].PaymentDate)
	})

	score := domain.RiskScore{MemberID: memberID, Tier: domain.RiskTierNormal}
	for _, c := range ordered {
		if c.IsLate() {
			score.MissedPayments++
		}
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		if !ordered[i].IsLate() {
			break
		}
		score.ConsecutiveRecentFines++
	}

	if score.MissedPayments >= th.MissedPayments || score.ConsecutiveRecentFines >= th.ConsecutiveRecentFines {
		score.Tier = domain.RiskTierHigh
	}
	return score
}
