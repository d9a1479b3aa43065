package voting

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Store runs fn inside a single transaction. If fn returns an error
// nothing it wrote is kept.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the persistence surface the executor needs.
type Tx interface {
	// FindEntity loads the entity with its vote set and holds an exclusive
	// lock on it until the transaction ends. Missing entity: ErrNotFound.
	FindEntity(ctx context.Context, ref Ref) (Entity, error)
	SaveVote(ctx context.Context, ref Ref, voterID int, v Value) error
	RemoveVote(ctx context.Context, ref Ref, voterID int) error
	// IncrementUserScore adds delta to the user's score. Missing user: ErrNotFound.
	IncrementUserScore(ctx context.Context, userID, delta int) error
	// Children lists entities that must go away together with ref.
	Children(ctx context.Context, ref Ref) ([]Ref, error)
	// DeleteEntity removes the entity row and its vote set.
	DeleteEntity(ctx context.Context, ref Ref) error
}

// Observer is notified about applied votes and failed reputation writes.
type Observer interface {
	VoteApplied(kind Kind, t Transition)
	ReputationWriteFailed(kind Kind)
}

type nopObserver struct{}

func (nopObserver) VoteApplied(Kind, Transition) {}
func (nopObserver) ReputationWriteFailed(Kind)   {}

const defaultMaxAttempts = 3

// Service executes vote requests transactionally against a Store.
type Service struct {
	store       Store
	logger      *zap.Logger
	observer    Observer
	maxAttempts int
}

type Option func(*Service)

// WithObserver installs an Observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMaxAttempts bounds how often a conflicting transaction is retried.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:       store,
		logger:      logger,
		observer:    nopObserver{},
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is what a caller gets back from Apply.
type Result struct {
	Entity  Entity
	Outcome Outcome
}

// Apply casts, retracts or switches voterID's vote on ref. The vote set
// write and all score increments commit together or not at all.
func (s *Service) Apply(ctx context.Context, ref Ref, voterID int, raw int) (Result, error) {
	if voterID <= 0 {
		return Result{}, ErrUnauthorized
	}
	value, err := ParseValue(raw)
	if err != nil {
		return Result{}, err
	}
	if _, err := PolicyFor(ref.Kind); err != nil {
		return Result{}, err
	}

	var res Result
	err = s.retry(ctx, func(tx Tx) error {
		current, err := tx.FindEntity(ctx, ref)
		if err != nil {
			return err
		}

		next, out, err := Apply(current, voterID, value)
		if err != nil {
			return err
		}

		if out.Current == None {
			err = tx.RemoveVote(ctx, ref, voterID)
		} else {
			err = tx.SaveVote(ctx, ref, voterID, out.Current)
		}
		if err != nil {
			return fmt.Errorf("save vote on %s: %w", ref, err)
		}

		if err := s.applyDeltas(ctx, tx, ref, out.Deltas); err != nil {
			return err
		}

		res = Result{Entity: next, Outcome: out}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.observer.VoteApplied(ref.Kind, res.Outcome.Transition)
	s.logger.Debug("vote applied",
		zap.Stringer("entity", ref),
		zap.Int("voter_id", voterID),
		zap.String("transition", string(res.Outcome.Transition)),
		zap.Stringer("previous", res.Outcome.Previous),
		zap.Stringer("current", res.Outcome.Current),
		zap.Int("score", res.Entity.Score()),
	)
	return res, nil
}

// Delete removes ref, everything listed by Children, and their vote sets,
// reverting the reputation those votes had contributed.
func (s *Service) Delete(ctx context.Context, ref Ref) error {
	if _, err := PolicyFor(ref.Kind); err != nil {
		return err
	}
	return s.retry(ctx, func(tx Tx) error {
		return s.deleteTree(ctx, tx, ref)
	})
}

func (s *Service) deleteTree(ctx context.Context, tx Tx, ref Ref) error {
	entity, err := tx.FindEntity(ctx, ref)
	if err != nil {
		return err
	}

	children, err := tx.Children(ctx, ref)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", ref, err)
	}
	for _, child := range children {
		if err := s.deleteTree(ctx, tx, child); err != nil {
			return err
		}
	}

	deltas, err := Revoke(entity)
	if err != nil {
		return err
	}
	if err := s.applyDeltas(ctx, tx, ref, deltas); err != nil {
		return err
	}

	if err := tx.DeleteEntity(ctx, ref); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func (s *Service) applyDeltas(ctx context.Context, tx Tx, ref Ref, deltas []Delta) error {
	for _, d := range deltas {
		if err := tx.IncrementUserScore(ctx, d.UserID, d.Amount); err != nil {
			// Lock conflicts on the user row are retried like any other.
			if errors.Is(err, ErrConflict) {
				return fmt.Errorf("user %d: %w", d.UserID, err)
			}
			s.observer.ReputationWriteFailed(ref.Kind)
			s.logger.Error("reputation write failed, rolling back",
				zap.Stringer("entity", ref),
				zap.Int("user_id", d.UserID),
				zap.Int("delta", d.Amount),
				zap.Error(err),
			)
			return fmt.Errorf("%w: user %d delta %d: %w", ErrReputationWrite, d.UserID, d.Amount, err)
		}
	}
	return nil
}

func (s *Service) retry(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.store.Transact(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("vote transaction conflicted, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return err
}
