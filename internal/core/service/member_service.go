package service

import (
	"context"
	"fmt"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/platform/logger"
	"github.com/rl1809/shop/internal/port"
)

type MemberService struct {
	uow port.UnitOfWork
	log *logger.Logger
}

func NewMemberService(uow port.UnitOfWork, log *logger.Logger) *MemberService {
	return &MemberService{uow: uow, log: log.With("service", "MemberService")}
}

// Join registers a member. Member names are unique.
func (s *MemberService) Join(ctx context.Context, name string, address domain.Address) (string, error) {
	member, err := domain.NewMember(name, address)
	if err != nil {
		return "", err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		existing, err := repos.Members().FindByName(ctx, member.Name)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: member %q already exists", domain.ErrConflict, member.Name)
		}
		return repos.Members().Save(ctx, member)
	})
	if err != nil {
		return "", err
	}

	s.log.Info("member joined", "member_id", member.ID)
	return member.ID, nil
}

func (s *MemberService) FindMembers(ctx context.Context) ([]*domain.Member, error) {
	var members []*domain.Member
	err := s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		members, err = repos.Members().FindAll(ctx)
		return err
	})
	return members, err
}

func (s *MemberService) FindMember(ctx context.Context, id string) (*domain.Member, error) {
	var member *domain.Member
	err := s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		member, err = repos.Members().FindByID(ctx, id)
		return err
	})
	return member, err
}

func (s *MemberService) UpdateName(ctx context.Context, id, name string) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		member, err := repos.Members().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := member.Rename(name); err != nil {
			return err
		}
		return repos.Members().Save(ctx, member)
	})
}
