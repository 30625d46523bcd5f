package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pawday/backend/internal/api/dto"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/puppy"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/infrastructure/cache"
)

// TaskHandler handles HTTP requests for ad hoc tasks and the per-day routine
// overrides (edit overlays and deletion tombstones).
type TaskHandler struct {
	service tasks.Service
	puppies puppy.Service
}

// NewTaskHandler creates a new TaskHandler instance
func NewTaskHandler(service tasks.Service, puppies puppy.Service) *TaskHandler {
	return &TaskHandler{service: service, puppies: puppies}
}

func (h *TaskHandler) requireMember(c *gin.Context, puppyID uuid.UUID) (uuid.UUID, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	if _, err := h.puppies.GetMembership(c.Request.Context(), puppyID, userID); err != nil {
		if errors.Is(err, puppy.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this puppy's household"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		}
		return uuid.Nil, false
	}
	return userID, true
}

// CreateTask adds an ad hoc task to today's timeline.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := h.requireMember(c, req.PuppyID)
	if !ok {
		return
	}

	task, err := h.service.AddTask(c.Request.Context(), tasks.AddTaskInput{
		PuppyID:      req.PuppyID,
		Time:         req.Time,
		Category:     req.Category,
		Title:        req.Title,
		Description:  req.Description,
		PottyDetails: PottyDetailsFromDTO(req.PottyDetails),
		CreatedBy:    userID,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, tasks.ErrCategoryRequired) || errors.Is(err, tasks.ErrTitleRequired) {
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": task})
}

// UpdateTask applies the edit form to a custom task document.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID := c.Param("id")

	var req dto.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := h.requireMember(c, req.PuppyID)
	if !ok {
		return
	}

	err := h.service.SubmitEdit(c.Request.Context(), tasks.EditInput{
		PuppyID:      req.PuppyID,
		TargetTaskID: taskID,
		Time:         req.Time,
		Category:     req.Category,
		Title:        req.Title,
		Description:  req.Description,
		PottyDetails: PottyDetailsFromDTO(req.PottyDetails),
		EditedBy:     userID,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, cache.ErrDocNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, tasks.ErrCategoryRequired):
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": taskID, "updated": true}})
}

// DeleteTask removes a custom task document permanently.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID := c.Param("id")

	puppyID, err := uuid.Parse(c.Query("puppy_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "puppy_id query parameter is required"})
		return
	}
	if _, ok := h.requireMember(c, puppyID); !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), puppyID, taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// CompleteTask marks a custom task completed.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	h.setCompletion(c, true)
}

// UncompleteTask clears completion on a custom task.
func (h *TaskHandler) UncompleteTask(c *gin.Context) {
	h.setCompletion(c, false)
}

func (h *TaskHandler) setCompletion(c *gin.Context, completed bool) {
	taskID := c.Param("id")

	var req struct {
		PuppyID uuid.UUID `json:"puppy_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := h.requireMember(c, req.PuppyID)
	if !ok {
		return
	}

	task, err := h.service.SetTaskCompletion(c.Request.Context(), req.PuppyID, taskID, completed, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, cache.ErrDocNotFound) {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task})
}

// OverrideRoutineItem writes an edit overlay for a routine item, scoped to
// today. The underlying generated routine row is never mutated.
func (h *TaskHandler) OverrideRoutineItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid routine item ID format"})
		return
	}

	var req dto.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := h.requireMember(c, req.PuppyID)
	if !ok {
		return
	}

	err = h.service.SubmitEdit(c.Request.Context(), tasks.EditInput{
		PuppyID:             req.PuppyID,
		TargetRoutineItemID: itemID,
		Time:                req.Time,
		Category:            req.Category,
		Title:               req.Title,
		Description:         req.Description,
		PottyDetails:        PottyDetailsFromDTO(req.PottyDetails),
		EditedBy:            userID,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, tasks.ErrCategoryRequired) {
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"routine_item_id": itemID, "overridden": true}})
}

// RemoveRoutineItem writes a deletion tombstone hiding the item for today.
func (h *TaskHandler) RemoveRoutineItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid routine item ID format"})
		return
	}

	var req struct {
		PuppyID uuid.UUID `json:"puppy_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := h.requireMember(c, req.PuppyID)
	if !ok {
		return
	}

	if err := h.service.DeleteRoutineItem(c.Request.Context(), req.PuppyID, itemID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
