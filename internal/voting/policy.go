package voting

import "fmt"

// Kind identifies a votable entity type
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Ref points at a single votable entity
type Ref struct {
	Kind Kind
	ID   int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// Policy holds the reputation effects of a single live vote.
type Policy struct {
	OwnerUpvote      int
	OwnerDownvote    int
	VoterUpvoteBonus int // only paid when the voter is not the owner
}

// Policies is the reputation table per entity kind. Adding a votable type
// means adding a row here.
var Policies = map[Kind]Policy{
	KindPost: {
		OwnerUpvote:      10,
		OwnerDownvote:    -2,
		VoterUpvoteBonus: 2,
	},
	KindComment: {
		OwnerUpvote:   5,
		OwnerDownvote: -2,
	},
}

// PolicyFor returns the policy row for kind.
func PolicyFor(kind Kind) (Policy, error) {
	p, ok := Policies[kind]
	if !ok {
		return Policy{}, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, kind)
	}
	return p, nil
}

// effect lists what a live vote of value v contributes to each user.
func (p Policy) effect(ownerID, voterID int, v Value) []Delta {
	switch v {
	case Up:
		deltas := []Delta{{UserID: ownerID, Amount: p.OwnerUpvote}}
		if voterID != ownerID && p.VoterUpvoteBonus != 0 {
			deltas = append(deltas, Delta{UserID: voterID, Amount: p.VoterUpvoteBonus})
		}
		return deltas
	case Down:
		return []Delta{{UserID: ownerID, Amount: p.OwnerDownvote}}
	default:
		return nil
	}
}
