package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
)

type UserHandler struct {
	svc      *forum.Service
	accounts *auth.Service
	views    *viewer
}

// GetUserProfile returns a user's public profile.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.Author()})
}

func (h *UserHandler) GetUserPosts(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.accounts.GetUser(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	list, err := h.svc.ListUserPosts(ctx, c.Param("id"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := h.views.posts(ctx, list.Posts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "posts": views, "pagination": list.Pagination})
}
