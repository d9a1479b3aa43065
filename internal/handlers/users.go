package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ai-forum/backend/internal/models"
	"github.com/emilythestrangee/ai-forum/backend/internal/upload"
)

type UserHandler struct {
	db       *gorm.DB
	uploader *upload.Uploader
	logger   *zap.Logger
}

func NewUserHandler(db *gorm.DB, uploader *upload.Uploader, logger *zap.Logger) *UserHandler {
	return &UserHandler{db: db, uploader: uploader, logger: logger}
}

// GetUserProfile returns a user's public profile
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		writeLookupError(c, h.logger, "User", err)
		return
	}

	var postCount int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Post{}).Where("user_id = ?", userID).Count(&postCount).Error; err != nil {
		writeLookupError(c, h.logger, "User", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"bio":        user.Bio,
		"avatar":     user.Avatar,
		"score":      user.Score,
		"post_count": postCount,
		"created_at": user.CreatedAt,
	})
}

// UpdateMe changes bio and avatar of the caller. Omitted fields stay as
// they are.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	updates := map[string]any{}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.Avatar != nil {
		updates["avatar"] = *input.Avatar
	}

	h.saveProfile(c, userID, updates)
}

// UploadAvatar stores a multipart "avatar" image and points the caller's
// profile at it.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	if fh.Size > upload.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds the 5 MB limit"})
		return
	}

	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	url, err := h.uploader.Image(c.Request.Context(), "avatars", file)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("avatar upload", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload avatar"})
		return
	}

	h.saveProfile(c, userID, map[string]any{"avatar": url})
}

func (h *UserHandler) saveProfile(c *gin.Context, userID int, updates map[string]any) {
	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		writeLookupError(c, h.logger, "User", err)
		return
	}

	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			h.logger.Error("update profile", zap.Int("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		if err := db.First(&user, userID).Error; err != nil {
			writeLookupError(c, h.logger, "User", err)
			return
		}
	}

	c.JSON(http.StatusOK, userView(user))
}
