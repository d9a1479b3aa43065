package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ai-forum/backend/internal/database"
	"github.com/emilythestrangee/ai-forum/backend/internal/models"
	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

// viewBuilder collapses stored vote sets into the public score fields.
type viewBuilder struct {
	store *database.VoteStore
}

func voteFields(view gin.H, e voting.Entity, viewerID int) gin.H {
	up, down := e.Tally()
	view["score"] = e.Score()
	view["upvotes"] = up
	view["downvotes"] = down
	view["user_vote"] = int(e.VoteOf(viewerID))
	return view
}

func postView(p models.Post, e voting.Entity, viewerID int) gin.H {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return voteFields(gin.H{
		"id":         p.ID,
		"title":      p.Title,
		"content":    p.Content,
		"tags":       tags,
		"user_id":    p.UserID,
		"author":     authorView(p.User),
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}, e, viewerID)
}

func commentView(cm models.Comment, e voting.Entity, viewerID int) gin.H {
	return voteFields(gin.H{
		"id":         cm.ID,
		"post_id":    cm.PostID,
		"content":    cm.Content,
		"user_id":    cm.UserID,
		"author":     authorView(cm.User),
		"created_at": cm.CreatedAt,
		"updated_at": cm.UpdatedAt,
	}, e, viewerID)
}

func (v *viewBuilder) posts(ctx context.Context, posts []models.Post, viewerID int) ([]gin.H, error) {
	ids := make([]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	sets, err := v.store.VoteSets(ctx, voting.KindPost, ids)
	if err != nil {
		return nil, err
	}

	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		e := voting.Entity{Ref: voting.Ref{Kind: voting.KindPost, ID: p.ID}, OwnerID: p.UserID, Votes: sets[p.ID]}
		out = append(out, postView(p, e, viewerID))
	}
	return out, nil
}

func (v *viewBuilder) post(ctx context.Context, p models.Post, viewerID int) (gin.H, error) {
	views, err := v.posts(ctx, []models.Post{p}, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (v *viewBuilder) comments(ctx context.Context, comments []models.Comment, viewerID int) ([]gin.H, error) {
	ids := make([]int, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
	}
	sets, err := v.store.VoteSets(ctx, voting.KindComment, ids)
	if err != nil {
		return nil, err
	}

	out := make([]gin.H, 0, len(comments))
	for _, cm := range comments {
		e := voting.Entity{Ref: voting.Ref{Kind: voting.KindComment, ID: cm.ID}, OwnerID: cm.UserID, Votes: sets[cm.ID]}
		out = append(out, commentView(cm, e, viewerID))
	}
	return out, nil
}

func (v *viewBuilder) comment(ctx context.Context, cm models.Comment, viewerID int) (gin.H, error) {
	views, err := v.comments(ctx, []models.Comment{cm}, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
