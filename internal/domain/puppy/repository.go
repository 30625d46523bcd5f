package puppy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
)

var (
	ErrPuppyNotFound  = errors.New("puppy not found")
	ErrInviteNotFound = errors.New("invite not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// Repository defines the interface for puppy persistence operations
type Repository interface {
	CreateWithOwner(ctx context.Context, puppy *Puppy, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Puppy, error)
	FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]MembershipWithPuppy, error)
	FindMembership(ctx context.Context, puppyID, userID uuid.UUID) (*Membership, error)
	CreateMembership(ctx context.Context, membership *Membership) error
	CreateInvite(ctx context.Context, invite *Invite) error
	FindInviteByToken(ctx context.Context, token string) (*Invite, error)
	UpdateInvite(ctx context.Context, invite *Invite) error
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

// CreateWithOwner inserts the puppy and its owner membership in one
// transaction so a puppy can never exist without an owner.
func (r *repository) CreateWithOwner(ctx context.Context, puppy *Puppy, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(puppy).Error; err != nil {
			return err
		}
		membership := &Membership{
			ID:      uuid.New(),
			PuppyID: puppy.ID,
			UserID:  ownerID,
			Role:    RoleOwner,
			Status:  MembershipActive,
		}
		return tx.Create(membership).Error
	})
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Puppy, error) {
	var puppy Puppy
	result := r.db.WithContext(ctx).First(&puppy, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPuppyNotFound
		}
		return nil, result.Error
	}
	return &puppy, nil
}

func (r *repository) FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]MembershipWithPuppy, error) {
	var memberships []Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, MembershipActive).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	out := make([]MembershipWithPuppy, 0, len(memberships))
	for _, m := range memberships {
		var puppy Puppy
		if err := r.db.WithContext(ctx).First(&puppy, "id = ?", m.PuppyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, MembershipWithPuppy{Membership: m, Puppy: puppy})
	}
	return out, nil
}

func (r *repository) FindMembership(ctx context.Context, puppyID, userID uuid.UUID) (*Membership, error) {
	var membership Membership
	result := r.db.WithContext(ctx).
		Where("puppy_id = ? AND user_id = ? AND status = ?", puppyID, userID, MembershipActive).
		First(&membership)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPuppyNotFound
		}
		return nil, result.Error
	}
	return &membership, nil
}

func (r *repository) CreateMembership(ctx context.Context, membership *Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *repository) CreateInvite(ctx context.Context, invite *Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *repository) FindInviteByToken(ctx context.Context, token string) (*Invite, error) {
	var invite Invite
	result := r.db.WithContext(ctx).Where("invite_token = ?", token).First(&invite)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, result.Error
	}
	return &invite, nil
}

func (r *repository) UpdateInvite(ctx context.Context, invite *Invite) error {
	result := r.db.WithContext(ctx).Save(invite)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}
