package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
)

type PostHandler struct {
	svc   *forum.Service
	views *viewer
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input forum.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	post, err := h.svc.CreatePost(c.Request.Context(), a, input)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.views.post(c.Request.Context(), post)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "post": view})
}

func (h *PostHandler) GetPosts(c *gin.Context) {
	list, err := h.svc.ListPosts(c.Request.Context(), forum.ListOptions{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Sort:     c.Query("sort"),
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
	})
	h.respondList(c, list, err)
}

func (h *PostHandler) GetTrending(c *gin.Context) {
	list, err := h.svc.TrendingPosts(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	h.respondList(c, list, err)
}

func (h *PostHandler) SearchPosts(c *gin.Context) {
	list, err := h.svc.SearchPosts(c.Request.Context(), c.Query("q"), queryInt(c, "page"), queryInt(c, "limit"))
	h.respondList(c, list, err)
}

// GetMyPosts lists the caller's own posts.
func (h *PostHandler) GetMyPosts(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.svc.ListUserPosts(c.Request.Context(), a.ID, queryInt(c, "page"), queryInt(c, "limit"))
	h.respondList(c, list, err)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.svc.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.views.post(c.Request.Context(), post)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": view})
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input forum.UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	post, err := h.svc.UpdatePost(c.Request.Context(), a, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.views.post(c.Request.Context(), post)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": view})
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.svc.DeletePost(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post deleted successfully"})
}

func (h *PostHandler) LikePost(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	res, err := h.svc.TogglePostLike(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "liked": res.Liked, "likesCount": res.LikesCount})
}

func (h *PostHandler) respondList(c *gin.Context, list *forum.PostList, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := h.views.posts(c.Request.Context(), list.Posts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "posts": views, "pagination": list.Pagination})
}
