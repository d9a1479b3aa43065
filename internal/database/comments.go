package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/ai-forum/backend/internal/models"
)

// CreateComment inserts c under a share lock on its post, so it cannot
// interleave with a post delete that holds the row exclusively. A missing
// post yields gorm.ErrRecordNotFound.
func CreateComment(ctx context.Context, db *gorm.DB, c *models.Comment) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").
			Take(&post, c.PostID).Error
		if err != nil {
			return err
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("insert comment on post %d: %w", c.PostID, err)
		}
		return nil
	})
}
