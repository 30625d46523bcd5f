package puppy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInviteExpired    = errors.New("invite has expired")
	ErrInviteNotPending = errors.New("invite is not pending")
	ErrAlreadyMember    = errors.New("user is already a member")
	ErrCannotInviteSelf = errors.New("cannot accept own invite")
	ErrNotMember        = errors.New("user is not a member of this puppy")
)

const inviteTTL = 7 * 24 * time.Hour

type Service interface {
	CreatePuppy(ctx context.Context, input CreatePuppyInput) (*Puppy, error)
	GetPuppy(ctx context.Context, puppyID, userID uuid.UUID) (*Puppy, error)
	ListPuppies(ctx context.Context, userID uuid.UUID) ([]MembershipWithPuppy, error)
	GetMembership(ctx context.Context, puppyID, userID uuid.UUID) (*Membership, error)
	CreateInvite(ctx context.Context, puppyID, invitedBy uuid.UUID) (*Invite, error)
	AcceptInvite(ctx context.Context, token string, userID uuid.UUID) (*Membership, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) CreatePuppy(ctx context.Context, input CreatePuppyInput) (*Puppy, error) {
	if input.Name == "" || input.Breed == "" {
		return nil, ErrInvalidInput
	}
	weightUnit := input.WeightUnit
	if weightUnit == "" {
		weightUnit = "lbs"
	}

	puppy := &Puppy{
		ID:                uuid.New(),
		Name:              input.Name,
		Breed:             input.Breed,
		AgeMonths:         input.AgeMonths,
		AgeWeeks:          input.AgeWeeks,
		WeightValue:       input.WeightValue,
		WeightUnit:        weightUnit,
		LivingSituation:   input.LivingSituation,
		PhotoURL:          input.PhotoURL,
		QuestionnaireData: input.QuestionnaireData,
	}

	if err := s.repo.CreateWithOwner(ctx, puppy, input.OwnerID); err != nil {
		return nil, err
	}

	s.logger.Info("Puppy created",
		zap.String("puppy_id", puppy.ID.String()),
		zap.String("owner_id", input.OwnerID.String()))

	return puppy, nil
}

// GetPuppy returns the puppy only when the caller holds an active membership.
func (s *service) GetPuppy(ctx context.Context, puppyID, userID uuid.UUID) (*Puppy, error) {
	if _, err := s.repo.FindMembership(ctx, puppyID, userID); err != nil {
		if errors.Is(err, ErrPuppyNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return s.repo.FindByID(ctx, puppyID)
}

func (s *service) ListPuppies(ctx context.Context, userID uuid.UUID) ([]MembershipWithPuppy, error) {
	return s.repo.FindMembershipsByUser(ctx, userID)
}

func (s *service) GetMembership(ctx context.Context, puppyID, userID uuid.UUID) (*Membership, error) {
	membership, err := s.repo.FindMembership(ctx, puppyID, userID)
	if err != nil {
		if errors.Is(err, ErrPuppyNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return membership, nil
}

func (s *service) CreateInvite(ctx context.Context, puppyID, invitedBy uuid.UUID) (*Invite, error) {
	if _, err := s.repo.FindMembership(ctx, puppyID, invitedBy); err != nil {
		if errors.Is(err, ErrPuppyNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, err
	}

	invite := &Invite{
		ID:          uuid.New(),
		PuppyID:     puppyID,
		InvitedBy:   invitedBy,
		InviteToken: token,
		Status:      InvitePending,
		ExpiresAt:   time.Now().UTC().Add(inviteTTL),
	}
	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// AcceptInvite turns a pending invite into a caretaker membership. Expired
// invites are marked as such on the way out.
func (s *service) AcceptInvite(ctx context.Context, token string, userID uuid.UUID) (*Membership, error) {
	invite, err := s.repo.FindInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if invite.Status != InvitePending {
		return nil, ErrInviteNotPending
	}
	if invite.InvitedBy == userID {
		return nil, ErrCannotInviteSelf
	}
	if time.Now().UTC().After(invite.ExpiresAt) {
		invite.Status = InviteExpired
		if err := s.repo.UpdateInvite(ctx, invite); err != nil {
			s.logger.Error("Failed to expire invite", zap.Error(err))
		}
		return nil, ErrInviteExpired
	}

	if existing, err := s.repo.FindMembership(ctx, invite.PuppyID, userID); err == nil && existing != nil {
		return nil, ErrAlreadyMember
	}

	membership := &Membership{
		ID:      uuid.New(),
		PuppyID: invite.PuppyID,
		UserID:  userID,
		Role:    RoleCaretaker,
		Status:  MembershipActive,
	}
	if err := s.repo.CreateMembership(ctx, membership); err != nil {
		return nil, err
	}

	invite.Status = InviteAccepted
	invite.AcceptedBy = &userID
	if err := s.repo.UpdateInvite(ctx, invite); err != nil {
		s.logger.Error("Failed to mark invite accepted", zap.Error(err))
	}

	return membership, nil
}

func generateInviteToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
