package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/puppy"
)

// RequireMembership resolves the :id path parameter as a puppy ID and
// rejects callers who are not an active member of that puppy's household.
// Handlers behind it can read "puppy_id" from the context pre-parsed.
func RequireMembership(puppies puppy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		puppyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid puppy ID format"})
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		if _, err := puppies.GetMembership(c.Request.Context(), puppyID, userID); err != nil {
			if err == puppy.ErrNotMember {
				c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this puppy's household"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
			}
			c.Abort()
			return
		}

		c.Set("puppy_id", puppyID)
		c.Next()
	}
}

// GetPuppyID retrieves the membership-checked puppy ID from the context.
func GetPuppyID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("puppy_id")
	if !exists {
		return uuid.Nil, false
	}
	puppyID, ok := value.(uuid.UUID)
	return puppyID, ok
}
