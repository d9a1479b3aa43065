package voting

import (
	"context"
	"fmt"
	"sync"
)

type memEntity struct {
	owner int
	votes map[int]Value
}

type memState struct {
	entities map[Ref]memEntity
	children map[Ref][]Ref
	scores   map[int]int
}

func (s memState) copy() memState {
	out := memState{
		entities: make(map[Ref]memEntity, len(s.entities)),
		children: make(map[Ref][]Ref, len(s.children)),
		scores:   make(map[int]int, len(s.scores)),
	}
	for ref, e := range s.entities {
		votes := make(map[int]Value, len(e.votes))
		for k, v := range e.votes {
			votes[k] = v
		}
		out.entities[ref] = memEntity{owner: e.owner, votes: votes}
	}
	for ref, c := range s.children {
		out.children[ref] = append([]Ref(nil), c...)
	}
	for id, score := range s.scores {
		out.scores[id] = score
	}
	return out
}

// memStore serializes every transaction behind one mutex and commits by
// swapping in the working copy.
type memStore struct {
	mu        sync.Mutex
	state     memState
	failScore map[int]bool
	conflicts int
	attempts  int

	// scoreConflicts makes that many IncrementUserScore calls fail with
	// ErrConflict, across transactions.
	scoreConflicts int
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			entities: map[Ref]memEntity{},
			children: map[Ref][]Ref{},
			scores:   map[int]int{},
		},
		failScore: map[int]bool{},
	}
}

func (m *memStore) addUser(ids ...int) {
	for _, id := range ids {
		m.state.scores[id] = 0
	}
}

func (m *memStore) addEntity(ref Ref, ownerID int, parent *Ref) {
	m.state.entities[ref] = memEntity{owner: ownerID, votes: map[int]Value{}}
	if parent != nil {
		m.state.children[*parent] = append(m.state.children[*parent], ref)
	}
}

func (m *memStore) score(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.scores[id]
}

func (m *memStore) votes(ref Ref) map[int]Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state.entities[ref]
	if !ok {
		return nil
	}
	return e.votes
}

func (m *memStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	work := m.state.copy()
	if err := fn(&memTx{state: work, failScore: m.failScore, scoreConflicts: &m.scoreConflicts}); err != nil {
		return err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return fmt.Errorf("commit: %w", ErrConflict)
	}
	m.state = work
	return nil
}

type memTx struct {
	state          memState
	failScore      map[int]bool
	scoreConflicts *int
}

func (tx *memTx) FindEntity(ctx context.Context, ref Ref) (Entity, error) {
	e, ok := tx.state.entities[ref]
	if !ok {
		return Entity{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	votes := make(map[int]Value, len(e.votes))
	for k, v := range e.votes {
		votes[k] = v
	}
	return Entity{Ref: ref, OwnerID: e.owner, Votes: votes}, nil
}

func (tx *memTx) SaveVote(ctx context.Context, ref Ref, voterID int, v Value) error {
	tx.state.entities[ref].votes[voterID] = v
	return nil
}

func (tx *memTx) RemoveVote(ctx context.Context, ref Ref, voterID int) error {
	delete(tx.state.entities[ref].votes, voterID)
	return nil
}

func (tx *memTx) IncrementUserScore(ctx context.Context, userID, delta int) error {
	if tx.scoreConflicts != nil && *tx.scoreConflicts > 0 {
		*tx.scoreConflicts--
		return fmt.Errorf("user %d: deadlock detected: %w", userID, ErrConflict)
	}
	if tx.failScore[userID] {
		return fmt.Errorf("user %d: disk on fire", userID)
	}
	if _, ok := tx.state.scores[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	tx.state.scores[userID] += delta
	return nil
}

func (tx *memTx) Children(ctx context.Context, ref Ref) ([]Ref, error) {
	return tx.state.children[ref], nil
}

func (tx *memTx) DeleteEntity(ctx context.Context, ref Ref) error {
	delete(tx.state.entities, ref)
	delete(tx.state.children, ref)
	return nil
}
