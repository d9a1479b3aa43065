package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ai-forum/backend/internal/content"
	"github.com/emilythestrangee/ai-forum/backend/internal/database"
	"github.com/emilythestrangee/ai-forum/backend/internal/middleware"
	"github.com/emilythestrangee/ai-forum/backend/internal/models"
	"github.com/emilythestrangee/ai-forum/backend/internal/upload"
	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth        *AuthHandler
	Post        *PostHandler
	Comment     *CommentHandler
	User        *UserHandler
	Leaderboard *LeaderboardHandler
	Content     *ContentHandler
}

// Deps are the collaborators shared by the handlers.
type Deps struct {
	DB       *gorm.DB
	Votes    *voting.Service
	Store    *database.VoteStore
	Auth     *middleware.Auth
	Content  *content.Service
	Uploader *upload.Uploader
	Logger   *zap.Logger
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	views := &viewBuilder{store: d.Store}

	return &Handler{
		Auth:        NewAuthHandler(d.DB, d.Auth, d.Logger),
		Post:        NewPostHandler(d.DB, d.Votes, views, d.Logger),
		Comment:     NewCommentHandler(d.DB, d.Votes, views, d.Logger),
		User:        NewUserHandler(d.DB, d.Uploader, d.Logger),
		Leaderboard: NewLeaderboardHandler(d.DB),
		Content:     NewContentHandler(d.Content),
	}
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := raw.(int)
	return id, ok
}

// writeLookupError answers a failed single-row load: 404 when the row is
// gone, 500 for anything else.
func writeLookupError(c *gin.Context, logger *zap.Logger, noun string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": noun + " not found"})
		return
	}
	logger.Error("load "+strings.ToLower(noun), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + strings.ToLower(noun)})
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// bindingError renders validator failures as one readable sentence.
func bindingError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", field))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

// writeVoteError maps executor failures onto HTTP answers. A reputation
// failure may wrap ErrNotFound for the owner, so it is checked first.
func writeVoteError(c *gin.Context, logger *zap.Logger, noun string, err error) {
	switch {
	case errors.Is(err, voting.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote value must be 1 or -1"})
	case errors.Is(err, voting.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.Is(err, voting.ErrReputationWrite):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reputation, vote was not recorded"})
	case errors.Is(err, voting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": noun + " not found"})
	case errors.Is(err, voting.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Too many concurrent votes, please retry"})
	default:
		logger.Error("vote failed", zap.String("entity", noun), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
	}
}

func authorView(u models.User) gin.H {
	return gin.H{
		"id":     u.ID,
		"name":   u.Name,
		"avatar": u.Avatar,
		"score":  u.Score,
	}
}

func userView(u models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"bio":        u.Bio,
		"avatar":     u.Avatar,
		"score":      u.Score,
		"is_admin":   u.IsAdmin,
		"created_at": u.CreatedAt,
	}
}
