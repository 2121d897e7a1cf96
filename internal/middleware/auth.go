// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// AuthMiddleware requires a valid bearer token and stores the caller's id
// and role on the context.
func AuthMiddleware(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authorization token required")
			return
		}
		user, err := accounts.Authenticate(c.Request.Context(), raw)
		if err != nil {
			abort(c, apperr.Status(err), apperr.PublicMessage(err))
			return
		}
		setActor(c, user)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if user, err := accounts.Authenticate(c.Request.Context(), raw); err == nil {
				setActor(c, user)
			}
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated caller, if any.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	id := c.GetString(userIDKey)
	if id == "" {
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: models.Role(c.GetString(roleKey))}, true
}

func setActor(c *gin.Context, user *models.User) {
	c.Set(userIDKey, user.ID)
	c.Set(roleKey, string(user.Role))
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
