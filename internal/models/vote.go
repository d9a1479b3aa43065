package models

import "time"

// Vote is one live vote. A voter has at most one per entity; a missing row
// means no vote.
type Vote struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	EntityKind string    `gorm:"size:16;not null;uniqueIndex:idx_votes_entity_user,priority:1" json:"entity_kind"`
	EntityID   int       `gorm:"not null;uniqueIndex:idx_votes_entity_user,priority:2" json:"entity_id"`
	UserID     int       `gorm:"not null;uniqueIndex:idx_votes_entity_user,priority:3;index" json:"user_id"`
	Value      int       `gorm:"not null;check:value = 1 OR value = -1" json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
