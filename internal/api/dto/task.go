package dto

import (
	"github.com/google/uuid"
)

// PottyDetailsDTO carries the potty break flags
type PottyDetailsDTO struct {
	Poop bool `json:"poop"`
	Pee  bool `json:"pee"`
}

// CreateTaskRequest represents the request to add an ad hoc task
type CreateTaskRequest struct {
	PuppyID      uuid.UUID        `json:"puppy_id" binding:"required"`
	Time         string           `json:"time"`
	Category     string           `json:"activity_category" binding:"required"`
	Title        string           `json:"title" binding:"required"`
	Description  string           `json:"description"`
	PottyDetails *PottyDetailsDTO `json:"potty_details"`
}

// EditRequest is the unified edit form payload for tasks and routine items
type EditRequest struct {
	PuppyID      uuid.UUID        `json:"puppy_id" binding:"required"`
	Time         string           `json:"time"`
	Category     string           `json:"activity_category" binding:"required"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	PottyDetails *PottyDetailsDTO `json:"potty_details"`
}
