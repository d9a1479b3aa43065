package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ai-forum/backend/internal/database"
	"github.com/emilythestrangee/ai-forum/backend/internal/models"
	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

type CommentHandler struct {
	db     *gorm.DB
	votes  *voting.Service
	views  *viewBuilder
	logger *zap.Logger
}

func NewCommentHandler(db *gorm.DB, votes *voting.Service, views *viewBuilder, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{db: db, votes: votes, views: views, logger: logger}
}

func (h *CommentHandler) respondComment(c *gin.Context, status int, comment models.Comment) {
	viewer, _ := extractUserID(c)
	view, err := h.views.comment(c.Request.Context(), comment, viewer)
	if err != nil {
		h.logger.Error("load comment votes", zap.Int("comment_id", comment.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comment"})
		return
	}
	c.JSON(status, view)
}

// GetComments returns all comments for a post, oldest first.
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := paramID(c, "postId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var comments []models.Comment
	if err := h.db.WithContext(c.Request.Context()).Where("post_id = ?", postID).Preload("User").Order("created_at asc, id asc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	viewer, _ := extractUserID(c)
	responses, err := h.views.comments(c.Request.Context(), comments, viewer)
	if err != nil {
		h.logger.Error("load comment votes", zap.Int("post_id", postID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}
	c.JSON(http.StatusOK, responses)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c *gin.Context) {
	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	postID, ok := paramID(c, "postId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var input models.CommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	comment := models.Comment{
		Content: input.Content,
		PostID:  postID,
		UserID:  authorID,
	}
	if err := database.CreateComment(c.Request.Context(), h.db, &comment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		h.logger.Error("create comment", zap.Int("post_id", postID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Preload("User").First(&comment, comment.ID).Error; err != nil {
		writeLookupError(c, h.logger, "Comment", err)
		return
	}
	h.respondComment(c, http.StatusCreated, comment)
}

func (h *CommentHandler) loadOwned(c *gin.Context, verb string) (models.Comment, bool) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return models.Comment{}, false
	}
	commentID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment id"})
		return models.Comment{}, false
	}

	var comment models.Comment
	if err := h.db.WithContext(c.Request.Context()).First(&comment, commentID).Error; err != nil {
		writeLookupError(c, h.logger, "Comment", err)
		return models.Comment{}, false
	}
	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only " + verb + " your own comments"})
		return models.Comment{}, false
	}
	return comment, true
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var input models.CommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	comment, ok := h.loadOwned(c, "edit")
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	if err := db.Model(&comment).Update("content", input.Content).Error; err != nil {
		h.logger.Error("update comment", zap.Int("comment_id", comment.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}
	if err := db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		writeLookupError(c, h.logger, "Comment", err)
		return
	}

	h.respondComment(c, http.StatusOK, comment)
}

// DeleteComment deletes a comment and its votes (owner only), giving back
// the reputation those votes earned.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	comment, ok := h.loadOwned(c, "delete")
	if !ok {
		return
	}

	err := h.votes.Delete(c.Request.Context(), voting.Ref{Kind: voting.KindComment, ID: comment.ID})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
	case errors.Is(err, voting.ErrNotFound) && !errors.Is(err, voting.ErrReputationWrite):
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
	default:
		h.logger.Error("delete comment", zap.Int("comment_id", comment.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
	}
}

// VoteComment: one vote per user, toggles off if same, switches if opposite
func (h *CommentHandler) VoteComment(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	commentID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment id"})
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote value must be 1 or -1"})
		return
	}

	res, err := h.votes.Apply(c.Request.Context(), voting.Ref{Kind: voting.KindComment, ID: commentID}, voterID, input.Value)
	if err != nil {
		writeVoteError(c, h.logger, "Comment", err)
		return
	}

	var comment models.Comment
	if err := h.db.WithContext(c.Request.Context()).Preload("User").First(&comment, commentID).Error; err != nil {
		writeLookupError(c, h.logger, "Comment", err)
		return
	}

	view := commentView(comment, res.Entity, voterID)
	view["transition"] = res.Outcome.Transition
	view["message"] = voteMessage(res.Outcome.Transition)
	c.JSON(http.StatusOK, view)
}
