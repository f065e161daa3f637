package httpapi

import (
	"net/http"

	"callnotes/internal/calls"

	"github.com/gin-gonic/gin"
)

type createCallRequest struct {
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
}

// CreateCall analyses a transcript and stores the result.
// The analysis is bound to the request context, so a disconnecting client cancels it.
func (h Handlers) CreateCall(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadJSON(c)
		return
	}
	call, err := h.Calls.Create(c.Request.Context(), uid, req.Title, req.Transcript)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}

func (h Handlers) ListCalls(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	list, err := h.Calls.List(c.Request.Context(), uid)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list})
}

func (h Handlers) GetCall(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}

// UpdateCall applies a partial update. Unknown keys are ignored and a JSON null counts as absent.
func (h Handlers) UpdateCall(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	var p calls.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		abortBadJSON(c)
		return
	}
	call, err := h.Calls.Update(c.Request.Context(), uid, c.Param("id"), p)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}

func (h Handlers) DeleteCall(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	if err := h.Calls.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
