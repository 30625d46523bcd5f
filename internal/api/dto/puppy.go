package dto

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CreatePuppyRequest represents the request to register a new puppy
type CreatePuppyRequest struct {
	Name              string         `json:"name" binding:"required"`
	Breed             string         `json:"breed" binding:"required"`
	AgeMonths         int            `json:"age_months"`
	AgeWeeks          int            `json:"age_weeks"`
	WeightValue       *float64       `json:"weight_value"`
	WeightUnit        string         `json:"weight_unit"`
	LivingSituation   string         `json:"living_situation"`
	PhotoURL          *string        `json:"photo_url"`
	QuestionnaireData datatypes.JSON `json:"questionnaire_data"`
}

// PuppyResponse represents a puppy in API responses
type PuppyResponse struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Breed             string         `json:"breed"`
	AgeMonths         int            `json:"age_months"`
	AgeWeeks          int            `json:"age_weeks"`
	WeightValue       *float64       `json:"weight_value,omitempty"`
	WeightUnit        string         `json:"weight_unit,omitempty"`
	LivingSituation   string         `json:"living_situation,omitempty"`
	PhotoURL          *string        `json:"photo_url,omitempty"`
	QuestionnaireData datatypes.JSON `json:"questionnaire_data,omitempty"`
	Role              string         `json:"role,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// PuppyListResponse represents the response for listing a user's puppies
type PuppyListResponse struct {
	Puppies    []PuppyResponse `json:"puppies"`
	TotalCount int             `json:"total_count"`
}

// InviteResponse represents an invite in API responses
type InviteResponse struct {
	ID        uuid.UUID `json:"id"`
	PuppyID   uuid.UUID `json:"puppy_id"`
	Token     string    `json:"token"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AcceptInviteRequest represents the request to accept an invite token
type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}
