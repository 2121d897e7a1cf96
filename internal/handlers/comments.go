package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
)

type CommentHandler struct {
	svc   *forum.Service
	views *viewer
}

// CreateComment adds a root comment or, with parentCommentId, a reply.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input forum.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	comment, err := h.svc.CreateComment(c.Request.Context(), a, input)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.views.comment(c.Request.Context(), comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "comment": view})
}

// GetComments returns one page of root comments, each with its replies.
func (h *CommentHandler) GetComments(c *gin.Context) {
	page, err := h.svc.ListComments(c.Request.Context(), c.Param("id"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := h.views.threads(c.Request.Context(), page.Threads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comments": views, "pagination": page.Pagination})
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	comment, err := h.svc.UpdateComment(c.Request.Context(), a, c.Param("id"), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.views.comment(c.Request.Context(), comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comment": view})
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Comment deleted successfully"})
}

func (h *CommentHandler) LikeComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	res, err := h.svc.ToggleCommentLike(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "liked": res.Liked, "likesCount": res.LikesCount})
}
