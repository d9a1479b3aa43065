package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/ai-forum/backend/internal/models"
	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

// VoteStore persists vote sets and reputation in postgres and implements
// voting.Store.
type VoteStore struct {
	db *gorm.DB
}

func NewVoteStore(db *gorm.DB) *VoteStore {
	return &VoteStore{db: db}
}

// Transact runs fn in one database transaction. Serialization failures,
// deadlocks and unique violations surface as voting.ErrConflict.
func (s *VoteStore) Transact(ctx context.Context, fn func(tx voting.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&voteTx{db: tx})
	})
	if err != nil && isRetryable(err) {
		return fmt.Errorf("%w: %w", voting.ErrConflict, err)
	}
	return err
}

// VoteSets loads the live vote sets of the given entities, keyed by entity id
// and then voter id. Entities without votes are absent from the result.
func (s *VoteStore) VoteSets(ctx context.Context, kind voting.Kind, ids []int) (map[int]map[int]voting.Value, error) {
	out := make(map[int]map[int]voting.Value, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id IN ?", string(kind), ids).
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("load %s votes: %w", kind, err)
	}

	for _, v := range votes {
		set, ok := out[v.EntityID]
		if !ok {
			set = map[int]voting.Value{}
			out[v.EntityID] = set
		}
		set[v.UserID] = voting.Value(v.Value)
	}
	return out, nil
}

type voteTx struct {
	db *gorm.DB
}

type entityRow struct {
	ID     int
	UserID int
}

func modelFor(kind voting.Kind) (any, error) {
	switch kind {
	case voting.KindPost:
		return &models.Post{}, nil
	case voting.KindComment:
		return &models.Comment{}, nil
	}
	return nil, fmt.Errorf("%w: unknown entity kind %q", voting.ErrInvalidInput, kind)
}

func (tx *voteTx) FindEntity(ctx context.Context, ref voting.Ref) (voting.Entity, error) {
	model, err := modelFor(ref.Kind)
	if err != nil {
		return voting.Entity{}, err
	}

	var row entityRow
	err = tx.db.WithContext(ctx).
		Model(model).
		Select("id", "user_id").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ref.ID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return voting.Entity{}, fmt.Errorf("%s: %w", ref, voting.ErrNotFound)
	}
	if err != nil {
		return voting.Entity{}, fmt.Errorf("lock %s: %w", ref, err)
	}

	var votes []models.Vote
	err = tx.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", string(ref.Kind), ref.ID).
		Find(&votes).Error
	if err != nil {
		return voting.Entity{}, fmt.Errorf("load votes of %s: %w", ref, err)
	}

	set := make(map[int]voting.Value, len(votes))
	for _, v := range votes {
		set[v.UserID] = voting.Value(v.Value)
	}
	return voting.Entity{Ref: ref, OwnerID: row.UserID, Votes: set}, nil
}

func (tx *voteTx) SaveVote(ctx context.Context, ref voting.Ref, voterID int, v voting.Value) error {
	vote := models.Vote{
		EntityKind: string(ref.Kind),
		EntityID:   ref.ID,
		UserID:     voterID,
		Value:      int(v),
	}
	return tx.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "entity_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&vote).Error
}

func (tx *voteTx) RemoveVote(ctx context.Context, ref voting.Ref, voterID int) error {
	return tx.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND user_id = ?", string(ref.Kind), ref.ID, voterID).
		Delete(&models.Vote{}).Error
}

func (tx *voteTx) IncrementUserScore(ctx context.Context, userID, delta int) error {
	res := tx.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, voting.ErrNotFound)
	}
	return nil
}

func (tx *voteTx) Children(ctx context.Context, ref voting.Ref) ([]voting.Ref, error) {
	if ref.Kind != voting.KindPost {
		return nil, nil
	}

	var ids []int
	err := tx.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", ref.ID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	refs := make([]voting.Ref, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, voting.Ref{Kind: voting.KindComment, ID: id})
	}
	return refs, nil
}

func (tx *voteTx) DeleteEntity(ctx context.Context, ref voting.Ref) error {
	model, err := modelFor(ref.Kind)
	if err != nil {
		return err
	}

	db := tx.db.WithContext(ctx)
	err = db.Where("entity_kind = ? AND entity_id = ?", string(ref.Kind), ref.ID).
		Delete(&models.Vote{}).Error
	if err != nil {
		return err
	}
	return db.Delete(model, ref.ID).Error
}
