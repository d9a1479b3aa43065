package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ai-forum/backend/internal/models"
	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

type PostHandler struct {
	db     *gorm.DB
	votes  *voting.Service
	views  *viewBuilder
	logger *zap.Logger
}

func NewPostHandler(db *gorm.DB, votes *voting.Service, views *viewBuilder, logger *zap.Logger) *PostHandler {
	return &PostHandler{db: db, votes: votes, views: views, logger: logger}
}

func (h *PostHandler) respondPosts(c *gin.Context, posts []models.Post) {
	viewer, _ := extractUserID(c)
	responses, err := h.views.posts(c.Request.Context(), posts, viewer)
	if err != nil {
		h.logger.Error("load post votes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	c.JSON(http.StatusOK, responses)
}

// GetPosts returns every post, newest first.
func (h *PostHandler) GetPosts(c *gin.Context) {
	var posts []models.Post
	if err := h.db.WithContext(c.Request.Context()).Preload("User").Order("created_at desc, id desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	h.respondPosts(c, posts)
}

// GetUserPosts returns all posts by a specific user
func (h *PostHandler) GetUserPosts(c *gin.Context) {
	userID, ok := paramID(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var posts []models.Post
	if err := h.db.WithContext(c.Request.Context()).Preload("User").Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user posts"})
		return
	}
	h.respondPosts(c, posts)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var post models.Post
	if err := h.db.WithContext(c.Request.Context()).Preload("User").First(&post, postID).Error; err != nil {
		writeLookupError(c, h.logger, "Post", err)
		return
	}

	h.respondPost(c, http.StatusOK, post)
}

func (h *PostHandler) respondPost(c *gin.Context, status int, post models.Post) {
	viewer, _ := extractUserID(c)
	view, err := h.views.post(c.Request.Context(), post, viewer)
	if err != nil {
		h.logger.Error("load post votes", zap.Int("post_id", post.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	c.JSON(status, view)
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	post := models.Post{
		Title:   input.Title,
		Content: input.Content,
		Tags:    pq.StringArray(input.Tags),
		UserID:  authorID,
	}
	if post.Tags == nil {
		post.Tags = pq.StringArray{}
	}

	db := h.db.WithContext(c.Request.Context())
	if err := db.Create(&post).Error; err != nil {
		h.logger.Error("create post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	// Reload with user information
	if err := db.Preload("User").First(&post, post.ID).Error; err != nil {
		writeLookupError(c, h.logger, "Post", err)
		return
	}

	h.respondPost(c, http.StatusCreated, post)
}

// loadOwned fetches a post and checks the caller wrote it.
func (h *PostHandler) loadOwned(c *gin.Context, verb string) (models.Post, bool) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return models.Post{}, false
	}
	postID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return models.Post{}, false
	}

	var post models.Post
	if err := h.db.WithContext(c.Request.Context()).First(&post, postID).Error; err != nil {
		writeLookupError(c, h.logger, "Post", err)
		return models.Post{}, false
	}
	if post.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only " + verb + " your own posts"})
		return models.Post{}, false
	}
	return post, true
}

// UpdatePost updates an existing post (PROTECTED - requires ownership)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	post, ok := h.loadOwned(c, "edit")
	if !ok {
		return
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.Tags != nil {
		updates["tags"] = pq.StringArray(*input.Tags)
	}

	db := h.db.WithContext(c.Request.Context())
	if len(updates) > 0 {
		if err := db.Model(&post).Updates(updates).Error; err != nil {
			h.logger.Error("update post", zap.Int("post_id", post.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
			return
		}
	}
	if err := db.Preload("User").First(&post, post.ID).Error; err != nil {
		writeLookupError(c, h.logger, "Post", err)
		return
	}

	h.respondPost(c, http.StatusOK, post)
}

// DeletePost deletes a post, its comments and every vote on them, giving
// back the reputation those votes earned.
func (h *PostHandler) DeletePost(c *gin.Context) {
	post, ok := h.loadOwned(c, "delete")
	if !ok {
		return
	}

	err := h.votes.Delete(c.Request.Context(), voting.Ref{Kind: voting.KindPost, ID: post.ID})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
	case errors.Is(err, voting.ErrNotFound) && !errors.Is(err, voting.ErrReputationWrite):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	default:
		h.logger.Error("delete post", zap.Int("post_id", post.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
	}
}

// VotePost casts, switches or retracts the caller's vote on a post.
func (h *PostHandler) VotePost(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote value must be 1 or -1"})
		return
	}

	res, err := h.votes.Apply(c.Request.Context(), voting.Ref{Kind: voting.KindPost, ID: postID}, voterID, input.Value)
	if err != nil {
		writeVoteError(c, h.logger, "Post", err)
		return
	}

	var post models.Post
	if err := h.db.WithContext(c.Request.Context()).Preload("User").First(&post, postID).Error; err != nil {
		writeLookupError(c, h.logger, "Post", err)
		return
	}

	view := postView(post, res.Entity, voterID)
	view["transition"] = res.Outcome.Transition
	view["message"] = voteMessage(res.Outcome.Transition)
	c.JSON(http.StatusOK, view)
}

func voteMessage(t voting.Transition) string {
	switch t {
	case voting.TransitionRetract:
		return "Vote removed"
	case voting.TransitionSwitch:
		return "Vote updated"
	default:
		return "Vote recorded"
	}
}
