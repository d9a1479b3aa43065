package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ai-forum/backend/internal/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardHandler struct {
	db *gorm.DB
}

func NewLeaderboardHandler(db *gorm.DB) *LeaderboardHandler {
	return &LeaderboardHandler{db: db}
}

func leaderboardLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultLeaderboardLimit
	}
	return min(n, maxLeaderboardLimit)
}

// TopUsers ranks users by reputation; ties go to the older account.
func (h *LeaderboardHandler) TopUsers(c *gin.Context) {
	limit := leaderboardLimit(c.Query("limit"))

	var users []models.User
	err := h.db.WithContext(c.Request.Context()).
		Order("score desc, id asc").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}

	responses := make([]gin.H, 0, len(users))
	for i, u := range users {
		entry := authorView(u)
		entry["rank"] = i + 1
		entry["bio"] = u.Bio
		responses = append(responses, entry)
	}
	c.JSON(http.StatusOK, responses)
}
