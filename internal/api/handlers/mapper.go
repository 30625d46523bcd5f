package handlers

import (
	"github.com/pawday/backend/internal/api/dto"
	"github.com/pawday/backend/internal/domain/puppy"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/domain/user"
)

// PuppyToResponse converts a puppy domain model to its API representation
func PuppyToResponse(p *puppy.Puppy, role string) dto.PuppyResponse {
	return dto.PuppyResponse{
		ID:                p.ID,
		Name:              p.Name,
		Breed:             p.Breed,
		AgeMonths:         p.AgeMonths,
		AgeWeeks:          p.AgeWeeks,
		WeightValue:       p.WeightValue,
		WeightUnit:        p.WeightUnit,
		LivingSituation:   p.LivingSituation,
		PhotoURL:          p.PhotoURL,
		QuestionnaireData: p.QuestionnaireData,
		Role:              role,
		CreatedAt:         p.CreatedAt,
	}
}

// InviteToResponse converts an invite to its API representation
func InviteToResponse(inv *puppy.Invite) dto.InviteResponse {
	return dto.InviteResponse{
		ID:        inv.ID,
		PuppyID:   inv.PuppyID,
		Token:     inv.InviteToken,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
	}
}

// RoutineToResponse converts a routine with items to its API representation
func RoutineToResponse(r *routine.RoutineWithItems) dto.RoutineResponse {
	items := make([]dto.RoutineItemResponse, len(r.Items))
	for i, item := range r.Items {
		items[i] = dto.RoutineItemResponse{
			ID:              item.ID,
			ActivityType:    item.ActivityType,
			Title:           item.Title,
			Description:     item.Description,
			ScheduledTime:   item.ScheduledTime,
			DurationMinutes: item.DurationMinutes,
			SortOrder:       item.SortOrder,
			IsEnabled:       item.IsEnabled,
		}
	}
	return dto.RoutineResponse{
		ID:          r.Routine.ID,
		PuppyID:     r.Routine.PuppyID,
		Source:      r.Routine.Source,
		GeneratedAt: r.Routine.GeneratedAt,
		Items:       items,
	}
}

// LogToResponse converts a completion log with its completer profile
func LogToResponse(l *routine.LogWithProfile) dto.CompletionLogResponse {
	resp := dto.CompletionLogResponse{
		RoutineItemID: l.RoutineItemID,
		PuppyID:       l.PuppyID,
		Date:          l.Date,
		Status:        l.Status,
		CompletedBy:   l.CompletedBy,
		CompletedAt:   l.CompletedAt,
		Note:          l.Note,
	}
	if l.CompleterProfile != nil {
		resp.Completer = &dto.ProfileSummary{
			DisplayName: l.CompleterProfile.DisplayName,
			AvatarURL:   l.CompleterProfile.AvatarURL,
		}
	}
	return resp
}

// ProfileToResponse converts a profile to its API representation
func ProfileToResponse(p *user.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// PottyDetailsFromDTO converts the wire potty flags to the domain type
func PottyDetailsFromDTO(d *dto.PottyDetailsDTO) *tasks.PottyDetails {
	if d == nil {
		return nil
	}
	return &tasks.PottyDetails{Poop: d.Poop, Pee: d.Pee}
}
