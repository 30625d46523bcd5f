package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pawday/backend/internal/api/dto"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/puppy"
	"github.com/pawday/backend/internal/domain/routine"
)

// RoutineHandler handles HTTP requests for routines and completion logs
type RoutineHandler struct {
	service routine.Service
	puppies puppy.Service
}

// NewRoutineHandler creates a new RoutineHandler instance
func NewRoutineHandler(service routine.Service, puppies puppy.Service) *RoutineHandler {
	return &RoutineHandler{service: service, puppies: puppies}
}

// requireMember verifies household membership for endpoints whose puppy ID
// arrives in the payload rather than the path.
func (h *RoutineHandler) requireMember(c *gin.Context, puppyID uuid.UUID) bool {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return false
	}
	if _, err := h.puppies.GetMembership(c.Request.Context(), puppyID, userID); err != nil {
		if errors.Is(err, puppy.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this puppy's household"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		}
		return false
	}
	return true
}

// SaveRoutine persists a generated schedule, replacing the active routine.
func (h *RoutineHandler) SaveRoutine(c *gin.Context) {
	var req dto.SaveRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireMember(c, req.PuppyID) {
		return
	}

	items := make([]routine.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = routine.ItemInput{
			ActivityType:    item.ActivityType,
			Title:           item.Title,
			Description:     item.Description,
			ScheduledTime:   item.ScheduledTime,
			DurationMinutes: item.DurationMinutes,
			SortOrder:       item.SortOrder,
		}
	}

	saved, err := h.service.SaveRoutine(c.Request.Context(), req.PuppyID, req.Source, items)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, routine.ErrInvalidInput) {
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": RoutineToResponse(saved)})
}

// GetRoutine returns the active routine; membership checked by the route group.
func (h *RoutineHandler) GetRoutine(c *gin.Context) {
	puppyID, _ := middleware.GetPuppyID(c)

	active, err := h.service.GetActiveRoutine(c.Request.Context(), puppyID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, routine.ErrRoutineNotFound) {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": RoutineToResponse(active)})
}

// ToggleItem enables or disables one routine item.
func (h *RoutineHandler) ToggleItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid routine item ID format"})
		return
	}

	var req dto.ToggleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ToggleItem(c.Request.Context(), itemID, req.Enabled); err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, routine.ErrItemNotFound) {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": itemID, "enabled": req.Enabled}})
}

// CompleteActivity upserts today's completion log for a routine item.
func (h *RoutineHandler) CompleteActivity(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid routine item ID format"})
		return
	}

	var req dto.CompleteActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireMember(c, req.PuppyID) {
		return
	}
	userID, _ := middleware.GetUserID(c)

	log, err := h.service.UpsertLog(c.Request.Context(), routine.UpsertLogInput{
		RoutineItemID: itemID,
		PuppyID:       req.PuppyID,
		Status:        routine.StatusCompleted,
		CompletedBy:   userID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": LogToResponse(log)})
}

// SkipActivity records a skipped status with an optional note.
func (h *RoutineHandler) SkipActivity(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid routine item ID format"})
		return
	}

	var req dto.SkipActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireMember(c, req.PuppyID) {
		return
	}
	userID, _ := middleware.GetUserID(c)

	log, err := h.service.UpsertLog(c.Request.Context(), routine.UpsertLogInput{
		RoutineItemID: itemID,
		PuppyID:       req.PuppyID,
		Status:        routine.StatusSkipped,
		CompletedBy:   userID,
		Note:          req.Note,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": LogToResponse(log)})
}

// UndoActivity deletes today's completion log for a routine item.
func (h *RoutineHandler) UndoActivity(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid routine item ID format"})
		return
	}

	puppyID, err := uuid.Parse(c.Query("puppy_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "puppy_id query parameter is required"})
		return
	}
	if !h.requireMember(c, puppyID) {
		return
	}

	if _, err := h.service.DeleteLog(c.Request.Context(), itemID, puppyID); err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, routine.ErrLogNotFound) {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetLogs returns completion logs for a date range, defaulting to today.
func (h *RoutineHandler) GetLogs(c *gin.Context) {
	puppyID, _ := middleware.GetPuppyID(c)

	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		logs, err := h.service.GetTodayLogs(c.Request.Context(), puppyID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		responses := make([]dto.CompletionLogResponse, len(logs))
		for i := range logs {
			responses[i] = LogToResponse(&logs[i])
		}
		c.JSON(http.StatusOK, gin.H{"data": responses})
		return
	}

	logs, err := h.service.GetLogsInRange(c.Request.Context(), puppyID, startDate, endDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	responses := make([]dto.CompletionLogResponse, len(logs))
	for i, l := range logs {
		responses[i] = LogToResponse(&routine.LogWithProfile{Log: l})
	}
	c.JSON(http.StatusOK, gin.H{"data": responses})
}
