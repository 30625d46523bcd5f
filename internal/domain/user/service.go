package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/events"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

type Service interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*Profile, error)
	GetCompleterProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CompleterProfile, error)
}

type service struct {
	repo   Repository
	bus    *cache.Client
	logger *zap.Logger
}

func NewService(repo Repository, bus *cache.Client, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile persists the change and publishes a profile event so open
// timelines can patch completer avatars without a reload.
func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err == ErrProfileNotFound {
		profile = &Profile{ID: id}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if input.DisplayName != nil {
		profile.DisplayName = input.DisplayName
		changed = true
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = input.AvatarURL
		changed = true
	}
	if !changed {
		return profile, nil
	}

	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	event := &events.ProfileEvent{
		UserID:    profile.ID,
		Timestamp: time.Now().UTC(),
	}
	if profile.DisplayName != nil {
		event.DisplayName = *profile.DisplayName
	}
	if profile.AvatarURL != nil {
		event.AvatarURL = *profile.AvatarURL
	}
	if err := s.bus.PublishEvent(ctx, events.ProfileChannel, event); err != nil {
		s.logger.Error("Failed to publish profile event", zap.Error(err))
	}

	return profile, nil
}

func (s *service) GetCompleterProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CompleterProfile, error) {
	profiles, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]CompleterProfile, len(profiles))
	for id, p := range profiles {
		out[id] = CompleterProfile{DisplayName: p.DisplayName, AvatarURL: p.AvatarURL}
	}
	return out, nil
}
