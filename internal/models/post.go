package models

import (
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID        int            `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:300;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	UserID    int            `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreatePostRequest accepts tags either as a JSON array or as one
// comma-separated string.
type CreatePostRequest struct {
	Title   string `json:"title" binding:"required,max=300"`
	Content string `json:"content" binding:"required"`
	Tags    Tags   `json:"tags"`
}

type UpdatePostRequest struct {
	Title   *string `json:"title" binding:"omitempty,min=1,max=300"`
	Content *string `json:"content" binding:"omitempty,min=1"`
	Tags    *Tags   `json:"tags"`
}

// VoteRequest carries +1 or -1; anything else is rejected by the vote engine.
type VoteRequest struct {
	Value int `json:"value"`
}
