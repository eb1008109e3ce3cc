package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
	"chitfund-backend/internal/utils"
)

type riskService struct {
	collectionRepo repository.CollectionRepository
	riskRepo       repository.RiskRepository
	notifier       Notifier
	thresholds     utils.RiskThresholds
	now            func() time.Time
}

func NewRiskService(
	collectionRepo repository.CollectionRepository,
	riskRepo repository.RiskRepository,
	notifier Notifier,
	thresholds utils.RiskThresholds,
) RiskService {
	return &riskService{
		collectionRepo: collectionRepo,
		riskRepo:       riskRepo,
		notifier:       notifier,
		thresholds:     thresholds,
		now:            time.Now,
	}
}

// ScoreMember is read-only; it never touches the stored tier.
func (s *riskService) ScoreMember(ctx context.Context, memberID int32) (*domain.RiskScore, error) {
	history, err := s.collectionRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("load history for member %d: %w", memberID, err)
	}
	score := utils.ScoreHistory(memberID, history, s.thresholds)
	return &score, nil
}

func (s *riskService) EvaluateMember(ctx context.Context, memberID int32) (*domain.RiskEvaluation, error) {
	history, err := s.collectionRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("load history for member %d: %w", memberID, err)
	}
	return s.EvaluateHistory(ctx, memberID, history)
}

// EvaluateHistory persists the member's tier. A flag is appended only when the
// stored tier moves from normal to high, so re-evaluating a member who is
// already high is a no-op for the flag log.
func (s *riskService) EvaluateHistory(ctx context.Context, memberID int32, history []domain.Collection) (*domain.RiskEvaluation, error) {
	logger.EnterMethod("riskService.EvaluateHistory", "memberID", memberID, "collections", len(history))

	score := utils.ScoreHistory(memberID, history, s.thresholds)
	var flag *domain.RiskFlag
	if score.Tier == domain.RiskTierHigh {
		flag = &domain.RiskFlag{
			SubjectType: domain.SubjectUser,
			SubjectID:   memberID,
			Reason:      domain.RiskFlagReasonHigh,
			Status:      domain.FlagStatusOpen,
			CreatedAt:   s.now().UTC(),
		}
	}

	previous, flagged, err := s.riskRepo.RecordTier(ctx, memberID, score.Tier, flag)
	if err != nil {
		logger.ExitMethodWithError("riskService.EvaluateHistory", err)
		return nil, fmt.Errorf("record tier for member %d: %w", memberID, err)
	}

	eval := &domain.RiskEvaluation{Score: score, PreviousTier: previous}
	if flagged {
		eval.Flag = flag
		s.notifyHighRisk(ctx, score)
	}
	logger.ExitMethod("riskService.EvaluateHistory", "memberID", memberID, "tier", score.Tier, "previous", previous, "flagged", flagged)
	return eval, nil
}

func (s *riskService) notifyHighRisk(ctx context.Context, score domain.RiskScore) {
	if s.notifier == nil {
		return
	}
	note := &domain.Notification{
		RecipientID: score.MemberID,
		Template:    domain.TemplateRiskHigh,
		Message:     domain.RiskFlagReasonHigh,
		Attributes: map[string]string{
			"missed_payments":          strconv.Itoa(score.MissedPayments),
			"consecutive_recent_fines": strconv.Itoa(score.ConsecutiveRecentFines),
		},
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		logger.Warn("Failed to hand off risk notification", "memberID", score.MemberID, "error", err)
	}
}

func (s *riskService) ResolveFlag(ctx context.Context, flagID int32) error {
	logger.EnterMethod("riskService.ResolveFlag", "flagID", flagID)
	if err := s.riskRepo.ResolveFlag(ctx, flagID, s.now().UTC()); err != nil {
		logger.ExitMethodWithError("riskService.ResolveFlag", err)
		return err
	}
	logger.ExitMethod("riskService.ResolveFlag", "flagID", flagID)
	return nil
}

// FlagAgent appends a manual flag against a collection agent.
func (s *riskService) FlagAgent(ctx context.Context, agentID int32, reason string) (*domain.RiskFlag, error) {
	reason = strings.TrimSpace(reason)
	if agentID <= 0 || reason == "" {
		return nil, fmt.Errorf("%w: agent and reason are required", domain.ErrInvalidInput)
	}
	flag := &domain.RiskFlag{
		SubjectType: domain.SubjectAgent,
		SubjectID:   agentID,
		Reason:      reason,
		Status:      domain.FlagStatusOpen,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.riskRepo.CreateFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("flag agent %d: %w", agentID, err)
	}
	logger.Info("Agent flagged", "agentID", agentID, "flagID", flag.ID)
	return flag, nil
}

func (s *riskService) ListFlags(ctx context.Context, subject domain.SubjectType, subjectID int32) ([]domain.RiskFlag, error) {
	if subject != domain.SubjectUser && subject != domain.SubjectAgent {
		return nil, fmt.Errorf("%w: unknown subject type %q", domain.ErrInvalidInput, subject)
	}
	return s.riskRepo.ListFlags(ctx, subject, subjectID)
}
