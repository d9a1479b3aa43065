package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ai-forum/backend/internal/content"
)

type ContentHandler struct {
	svc *content.Service
}

func NewContentHandler(svc *content.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type generateRequest struct {
	Title string `json:"title"`
	Style string `json:"style"`
}

func writeContentError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, content.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI content service is not configured. Please add an API key to your environment variables."})
	case errors.Is(err, content.ErrInvalidTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// Generate drafts post content for a title.
func (h *ContentHandler) Generate(c *gin.Context) {
	var input generateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	style := strings.TrimSpace(input.Style)
	if style == "" {
		style = content.DefaultStyle
	}

	text, err := h.svc.GeneratePostContent(c.Request.Context(), input.Title, style)
	if err != nil {
		writeContentError(c, err, "Failed to generate content")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"title":   strings.TrimSpace(input.Title),
		"content": text,
		"style":   style,
	})
}

// Suggestions drafts the same title in several styles.
func (h *ContentHandler) Suggestions(c *gin.Context) {
	var input generateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	suggestions, err := h.svc.Suggestions(c.Request.Context(), input.Title)
	if err != nil {
		writeContentError(c, err, "Failed to generate suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"title":       strings.TrimSpace(input.Title),
		"suggestions": suggestions,
	})
}
