package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
)

type groupService struct {
	groupRepo repository.GroupRepository
	now       func() time.Time
}

func NewGroupService(groupRepo repository.GroupRepository) GroupService {
	return &groupService{groupRepo: groupRepo, now: time.Now}
}

func (s *groupService) CreateGroup(ctx context.Context, g *domain.ChitGroup) error {
	logger.EnterMethod("groupService.CreateGroup", "branchID", g.BranchID, "name", g.Name)

	g.Name = strings.TrimSpace(g.Name)
	g.Status = domain.GroupStatusPending
	g.CurrentCycle = 0
	if err := validateNewGroup(g); err != nil {
		logger.ExitMethodWithError("groupService.CreateGroup", err)
		return err
	}
	if err := s.groupRepo.Create(ctx, g); err != nil {
		logger.ExitMethodWithError("groupService.CreateGroup", err)
		return fmt.Errorf("create group: %w", err)
	}
	logger.ExitMethod("groupService.CreateGroup", "groupID", g.ID)
	return nil
}

func validateNewGroup(g *domain.ChitGroup) error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}
	if g.BranchID <= 0 {
		return fmt.Errorf("%w: branch is required", domain.ErrInvalidInput)
	}
	if g.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	}
	if g.MaxMembers <= 0 {
		return fmt.Errorf("%w: max members must be positive", domain.ErrInvalidInput)
	}
	if g.StartsOn.IsZero() {
		return fmt.Errorf("%w: start date is required", domain.ErrInvalidInput)
	}
	return g.Validate()
}

func (s *groupService) GetGroup(ctx context.Context, id int32) (*domain.ChitGroup, []domain.Membership, error) {
	g, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.groupRepo.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return g, members, nil
}

func (s *groupService) ActivateGroup(ctx context.Context, id int32) (*domain.ChitGroup, error) {
	return s.transition(ctx, id, domain.GroupStatusActive)
}

func (s *groupService) CancelGroup(ctx context.Context, id int32) (*domain.ChitGroup, error) {
	return s.transition(ctx, id, domain.GroupStatusCancelled)
}

func (s *groupService) transition(ctx context.Context, id int32, to domain.GroupStatus) (*domain.ChitGroup, error) {
	logger.EnterMethod("groupService.transition", "groupID", id, "to", to)

	g, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("groupService.transition", err)
		return nil, err
	}
	if !g.Status.CanTransitionTo(to) {
		err := fmt.Errorf("%w: group %d cannot move from %s to %s", domain.ErrInvalidState, id, g.Status, to)
		logger.ExitMethodWithError("groupService.transition", err)
		return nil, err
	}
	if err := s.groupRepo.UpdateStatus(ctx, id, g.Status, to); err != nil {
		logger.ExitMethodWithError("groupService.transition", err)
		return nil, err
	}
	g.Status = to
	logger.ExitMethod("groupService.transition", "groupID", id, "status", to)
	return g, nil
}

// AddMember relies on the repository to enforce capacity under a row lock.
func (s *groupService) AddMember(ctx context.Context, groupID, memberID int32) (*domain.Membership, error) {
	logger.EnterMethod("groupService.AddMember", "groupID", groupID, "memberID", memberID)

	if memberID <= 0 {
		return nil, fmt.Errorf("%w: member is required", domain.ErrInvalidInput)
	}
	m := &domain.Membership{GroupID: groupID, MemberID: memberID, JoinedAt: s.now().UTC()}
	if err := s.groupRepo.AddMember(ctx, m); err != nil {
		logger.ExitMethodWithError("groupService.AddMember", err)
		return nil, err
	}
	logger.ExitMethod("groupService.AddMember", "groupID", groupID, "memberID", memberID)
	return m, nil
}
