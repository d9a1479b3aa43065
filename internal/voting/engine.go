package voting

import (
	"fmt"
	"sort"
)

// Value is a signed vote. The zero value means "no vote".
type Value int

const (
	None Value = 0
	Up   Value = 1
	Down Value = -1
)

// ParseValue accepts exactly +1 or -1.
func ParseValue(raw int) (Value, error) {
	switch Value(raw) {
	case Up, Down:
		return Value(raw), nil
	default:
		return None, fmt.Errorf("%w: vote value must be 1 or -1, got %d", ErrInvalidInput, raw)
	}
}

func (v Value) String() string {
	switch v {
	case Up:
		return "upvoted"
	case Down:
		return "downvoted"
	default:
		return "none"
	}
}

// Transition describes how a vote request changed the voter's state.
type Transition string

const (
	TransitionCast    Transition = "cast"    // NoVote -> Upvoted/Downvoted
	TransitionRetract Transition = "retract" // same value again, vote removed
	TransitionSwitch  Transition = "switch"  // opposite value, vote replaced
)

// Entity is a post or comment with its live vote set keyed by voter id.
type Entity struct {
	Ref     Ref
	OwnerID int
	Votes   map[int]Value
}

// VoteOf returns the voter's live vote, or None.
func (e Entity) VoteOf(voterID int) Value {
	return e.Votes[voterID]
}

// Score is the sum of all live vote values.
func (e Entity) Score() int {
	score := 0
	for _, v := range e.Votes {
		score += int(v)
	}
	return score
}

// Tally counts live upvotes and downvotes.
func (e Entity) Tally() (up, down int) {
	for _, v := range e.Votes {
		if v == Up {
			up++
		} else if v == Down {
			down++
		}
	}
	return up, down
}

func (e Entity) clone() Entity {
	votes := make(map[int]Value, len(e.Votes)+1)
	for voter, v := range e.Votes {
		votes[voter] = v
	}
	e.Votes = votes
	return e
}

// Delta is a net score change for one user.
type Delta struct {
	UserID int
	Amount int
}

// Outcome is the result of one vote request.
type Outcome struct {
	Previous   Value
	Current    Value
	Transition Transition
	Deltas     []Delta
}

// Apply runs the vote state machine for (entity, voter) and returns the
// updated entity plus the net reputation deltas. The input entity is not
// modified.
func Apply(e Entity, voterID int, requested Value) (Entity, Outcome, error) {
	if requested != Up && requested != Down {
		return e, Outcome{}, fmt.Errorf("%w: vote value must be 1 or -1, got %d", ErrInvalidInput, int(requested))
	}
	policy, err := PolicyFor(e.Ref.Kind)
	if err != nil {
		return e, Outcome{}, err
	}

	next := e.clone()
	previous := next.Votes[voterID]
	ledger := newLedger()

	out := Outcome{Previous: previous}
	switch previous {
	case None:
		next.Votes[voterID] = requested
		ledger.add(policy.effect(e.OwnerID, voterID, requested), 1)
		out.Transition = TransitionCast
		out.Current = requested
	case requested:
		delete(next.Votes, voterID)
		ledger.add(policy.effect(e.OwnerID, voterID, previous), -1)
		out.Transition = TransitionRetract
		out.Current = None
	default:
		ledger.add(policy.effect(e.OwnerID, voterID, previous), -1)
		ledger.add(policy.effect(e.OwnerID, voterID, requested), 1)
		next.Votes[voterID] = requested
		out.Transition = TransitionSwitch
		out.Current = requested
	}
	out.Deltas = ledger.deltas()

	return next, out, nil
}

// Revoke returns the deltas that cancel every live vote on the entity.
// Used when the entity is deleted.
func Revoke(e Entity) ([]Delta, error) {
	policy, err := PolicyFor(e.Ref.Kind)
	if err != nil {
		return nil, err
	}
	ledger := newLedger()
	for voterID, v := range e.Votes {
		ledger.add(policy.effect(e.OwnerID, voterID, v), -1)
	}
	return ledger.deltas(), nil
}

type ledger map[int]int

func newLedger() ledger {
	return ledger{}
}

func (l ledger) add(deltas []Delta, sign int) {
	for _, d := range deltas {
		l[d.UserID] += sign * d.Amount
	}
}

// deltas drops users whose net change is zero and orders by user id so
// increments are always issued in the same order.
func (l ledger) deltas() []Delta {
	out := make([]Delta, 0, len(l))
	for userID, amount := range l {
		if amount == 0 {
			continue
		}
		out = append(out, Delta{UserID: userID, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
