package httpapi

import (
	"net/http"

	"callnotes/internal/users"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	// Identifier is an email address or a username.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h Handlers) Signup(c *gin.Context) {
	var req users.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadJSON(c)
		return
	}
	sess, err := h.Users.Signup(c.Request.Context(), req)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "identifier and password required", "code": "invalid_input"})
		return
	}
	sess, err := h.Users.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required", "code": "invalid_input"})
		return
	}
	sess, err := h.Users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) Me(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	u, err := h.Users.Get(c.Request.Context(), uid)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
