package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

type AuthHandler struct {
	accounts *auth.Service
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Name, valid email and a password of at least 6 characters are required")
		return
	}

	user, token, err := h.accounts.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	user, token, err := h.accounts.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// GetMe returns the authenticated user.
func (h *AuthHandler) GetMe(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	user, err := h.accounts.GetUser(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
