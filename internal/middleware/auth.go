package middleware

import (
	"net/http"
	"strings"

	"github.com/forps/taskboard/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// AuthRequired is a middleware that checks for a valid JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(ContextUserID); exists {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

// GetEmail gets the current user's email from context
func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}
