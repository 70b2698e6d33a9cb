package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rl1809/shop/internal/core/domain"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Save(ctx context.Context, member *domain.Member) error {
	rec := memberRecordOf(member)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return mapError("save member", err)
	}
	return nil
}

func (r *MemberRepository) FindByID(ctx context.Context, id string) (*domain.Member, error) {
	var rec memberRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("member", id)
	}
	if err != nil {
		return nil, mapError("find member", err)
	}
	return rec.toDomain(), nil
}

func (r *MemberRepository) FindByName(ctx context.Context, name string) ([]*domain.Member, error) {
	var recs []memberRecord
	if err := r.db.WithContext(ctx).Where("name = ?", name).Find(&recs).Error; err != nil {
		return nil, mapError("find members by name", err)
	}
	return membersOf(recs), nil
}

func (r *MemberRepository) FindAll(ctx context.Context) ([]*domain.Member, error) {
	var recs []memberRecord
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, mapError("find members", err)
	}
	return membersOf(recs), nil
}

func membersOf(recs []memberRecord) []*domain.Member {
	members := make([]*domain.Member, 0, len(recs))
	for _, rec := range recs {
		members = append(members, rec.toDomain())
	}
	return members
}
