package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/dto"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/puppy"
)

// PuppyHandler handles HTTP requests for puppies, memberships and invites
type PuppyHandler struct {
	service puppy.Service
}

// NewPuppyHandler creates a new PuppyHandler instance
func NewPuppyHandler(service puppy.Service) *PuppyHandler {
	return &PuppyHandler{service: service}
}

// CreatePuppy registers a puppy and makes the caller its owner.
func (h *PuppyHandler) CreatePuppy(c *gin.Context) {
	var req dto.CreatePuppyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	created, err := h.service.CreatePuppy(c.Request.Context(), puppy.CreatePuppyInput{
		Name:              req.Name,
		Breed:             req.Breed,
		AgeMonths:         req.AgeMonths,
		AgeWeeks:          req.AgeWeeks,
		WeightValue:       req.WeightValue,
		WeightUnit:        req.WeightUnit,
		LivingSituation:   req.LivingSituation,
		PhotoURL:          req.PhotoURL,
		QuestionnaireData: req.QuestionnaireData,
		OwnerID:           userID,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, puppy.ErrInvalidInput) {
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": PuppyToResponse(created, puppy.RoleOwner)})
}

// ListPuppies returns every puppy the caller has an active membership for.
func (h *PuppyHandler) ListPuppies(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	memberships, err := h.service.ListPuppies(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	puppies := make([]dto.PuppyResponse, len(memberships))
	for i, m := range memberships {
		puppies[i] = PuppyToResponse(&m.Puppy, m.Membership.Role)
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.PuppyListResponse{
		Puppies:    puppies,
		TotalCount: len(puppies),
	}})
}

// GetPuppy returns one puppy; membership was checked by the route group.
func (h *PuppyHandler) GetPuppy(c *gin.Context) {
	puppyID, _ := middleware.GetPuppyID(c)
	userID, _ := middleware.GetUserID(c)

	found, err := h.service.GetPuppy(c.Request.Context(), puppyID, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, puppy.ErrPuppyNotFound) {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	membership, err := h.service.GetMembership(c.Request.Context(), puppyID, userID)
	role := ""
	if err == nil {
		role = membership.Role
	}
	c.JSON(http.StatusOK, gin.H{"data": PuppyToResponse(found, role)})
}

// CreateInvite issues a caretaker invite token for a puppy.
func (h *PuppyHandler) CreateInvite(c *gin.Context) {
	puppyID, _ := middleware.GetPuppyID(c)
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	invite, err := h.service.CreateInvite(c.Request.Context(), puppyID, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, puppy.ErrNotMember) {
			statusCode = http.StatusForbidden
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": InviteToResponse(invite)})
}

// AcceptInvite redeems an invite token for the calling user.
func (h *PuppyHandler) AcceptInvite(c *gin.Context) {
	var req dto.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	membership, err := h.service.AcceptInvite(c.Request.Context(), req.Token, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, puppy.ErrInviteNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, puppy.ErrInviteExpired),
			errors.Is(err, puppy.ErrInviteNotPending),
			errors.Is(err, puppy.ErrCannotInviteSelf),
			errors.Is(err, puppy.ErrAlreadyMember):
			statusCode = http.StatusConflict
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"puppy_id": membership.PuppyID,
		"role":     membership.Role,
		"status":   membership.Status,
	}})
}
