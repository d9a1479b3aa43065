package voting

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner = 1
	voter = 2
)

func post(votes map[int]Value) Entity {
	return Entity{Ref: Ref{Kind: KindPost, ID: 10}, OwnerID: owner, Votes: votes}
}

func comment(votes map[int]Value) Entity {
	return Entity{Ref: Ref{Kind: KindComment, ID: 20}, OwnerID: owner, Votes: votes}
}

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		name       string
		entity     Entity
		voter      int
		value      Value
		wantVotes  map[int]Value
		transition Transition
		deltas     []Delta
	}{
		{
			name:       "post none to up",
			entity:     post(nil),
			voter:      voter,
			value:      Up,
			wantVotes:  map[int]Value{voter: Up},
			transition: TransitionCast,
			deltas:     []Delta{{owner, 10}, {voter, 2}},
		},
		{
			name:       "post none to down",
			entity:     post(nil),
			voter:      voter,
			value:      Down,
			wantVotes:  map[int]Value{voter: Down},
			transition: TransitionCast,
			deltas:     []Delta{{owner, -2}},
		},
		{
			name:       "post up to none",
			entity:     post(map[int]Value{voter: Up}),
			voter:      voter,
			value:      Up,
			wantVotes:  map[int]Value{},
			transition: TransitionRetract,
			deltas:     []Delta{{owner, -10}, {voter, -2}},
		},
		{
			name:       "post down to none",
			entity:     post(map[int]Value{voter: Down}),
			voter:      voter,
			value:      Down,
			wantVotes:  map[int]Value{},
			transition: TransitionRetract,
			deltas:     []Delta{{owner, 2}},
		},
		{
			name:       "post up to down",
			entity:     post(map[int]Value{voter: Up}),
			voter:      voter,
			value:      Down,
			wantVotes:  map[int]Value{voter: Down},
			transition: TransitionSwitch,
			deltas:     []Delta{{owner, -12}, {voter, -2}},
		},
		{
			name:       "post down to up",
			entity:     post(map[int]Value{voter: Down}),
			voter:      voter,
			value:      Up,
			wantVotes:  map[int]Value{voter: Up},
			transition: TransitionSwitch,
			deltas:     []Delta{{owner, 12}, {voter, 2}},
		},
		{
			name:       "comment none to up",
			entity:     comment(nil),
			voter:      voter,
			value:      Up,
			wantVotes:  map[int]Value{voter: Up},
			transition: TransitionCast,
			deltas:     []Delta{{owner, 5}},
		},
		{
			name:       "comment up to down",
			entity:     comment(map[int]Value{voter: Up}),
			voter:      voter,
			value:      Down,
			wantVotes:  map[int]Value{voter: Down},
			transition: TransitionSwitch,
			deltas:     []Delta{{owner, -7}},
		},
		{
			name:       "comment down to none",
			entity:     comment(map[int]Value{voter: Down}),
			voter:      voter,
			value:      Down,
			wantVotes:  map[int]Value{},
			transition: TransitionRetract,
			deltas:     []Delta{{owner, 2}},
		},
		{
			name:       "post self upvote has no voter bonus",
			entity:     post(nil),
			voter:      owner,
			value:      Up,
			wantVotes:  map[int]Value{owner: Up},
			transition: TransitionCast,
			deltas:     []Delta{{owner, 10}},
		},
		{
			name:       "post self switch up to down",
			entity:     post(map[int]Value{owner: Up}),
			voter:      owner,
			value:      Down,
			wantVotes:  map[int]Value{owner: Down},
			transition: TransitionSwitch,
			deltas:     []Delta{{owner, -12}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, out, err := Apply(tt.entity, tt.voter, tt.value)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.wantVotes, next.Votes); diff != "" {
				t.Errorf("votes mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.deltas, out.Deltas); diff != "" {
				t.Errorf("deltas mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.transition, out.Transition)
			assert.Equal(t, tt.value == tt.entity.VoteOf(tt.voter), out.Current == None)
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := post(map[int]Value{voter: Up})

	_, _, err := Apply(in, voter, Down)
	require.NoError(t, err)

	assert.Equal(t, Up, in.Votes[voter])
}

func TestApplyRejectsInvalidValue(t *testing.T) {
	in := post(map[int]Value{voter: Up})

	for _, v := range []Value{0, 2, -2, 5} {
		next, out, err := Apply(in, voter, v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Empty(t, out.Deltas)
		assert.Equal(t, in, next)
	}
}

func TestApplyRejectsUnknownKind(t *testing.T) {
	in := Entity{Ref: Ref{Kind: "poll", ID: 1}, OwnerID: owner}

	_, _, err := Apply(in, voter, Up)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(1)
	require.NoError(t, err)
	assert.Equal(t, Up, v)

	v, err = ParseValue(-1)
	require.NoError(t, err)
	assert.Equal(t, Down, v)

	_, err = ParseValue(2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// sumDeltas folds a sequence of outcomes into per-user totals.
func sumDeltas(outs ...Outcome) map[int]int {
	total := map[int]int{}
	for _, out := range outs {
		for _, d := range out.Deltas {
			total[d.UserID] += d.Amount
		}
	}
	for id, amount := range total {
		if amount == 0 {
			delete(total, id)
		}
	}
	return total
}

func TestRepeatedVoteTogglesOff(t *testing.T) {
	for _, start := range []Entity{post(nil), comment(nil)} {
		for _, v := range []Value{Up, Down} {
			first, out1, err := Apply(start, voter, v)
			require.NoError(t, err)
			second, out2, err := Apply(first, voter, v)
			require.NoError(t, err)

			assert.Equal(t, None, second.VoteOf(voter))
			assert.Empty(t, sumDeltas(out1, out2), "kind=%s value=%d", start.Ref.Kind, v)
		}
	}
}

func TestSwitchMatchesDirectVote(t *testing.T) {
	for _, start := range []Entity{post(nil), comment(nil)} {
		for _, who := range []int{voter, owner} {
			up, out1, err := Apply(start, who, Up)
			require.NoError(t, err)
			switched, out2, err := Apply(up, who, Down)
			require.NoError(t, err)

			direct, out3, err := Apply(start, who, Down)
			require.NoError(t, err)

			if diff := cmp.Diff(direct.Votes, switched.Votes); diff != "" {
				t.Errorf("votes mismatch (-direct +switched):\n%s", diff)
			}
			if diff := cmp.Diff(sumDeltas(out3), sumDeltas(out1, out2)); diff != "" {
				t.Errorf("reputation mismatch (-direct +switched):\n%s", diff)
			}
		}
	}
}

func TestCommentNeverPaysVoterBonus(t *testing.T) {
	for _, v := range []Value{Up, Down} {
		for _, who := range []int{voter, owner} {
			_, out, err := Apply(comment(nil), who, v)
			require.NoError(t, err)
			for _, d := range out.Deltas {
				assert.Equal(t, owner, d.UserID)
			}
		}
	}
}

func TestPostScenario(t *testing.T) {
	p := post(nil)

	p, out, err := Apply(p, voter, Up)
	require.NoError(t, err)
	assert.Equal(t, []Delta{{owner, 10}, {voter, 2}}, out.Deltas)
	assert.Equal(t, map[int]Value{voter: Up}, p.Votes)

	p, out2, err := Apply(p, voter, Down)
	require.NoError(t, err)
	assert.Equal(t, map[int]Value{voter: Down}, p.Votes)

	total := sumDeltas(out, out2)
	assert.Equal(t, map[int]int{owner: -2}, total)
}

func TestCommentScenario(t *testing.T) {
	c := comment(nil)

	c, out, err := Apply(c, voter, Up)
	require.NoError(t, err)
	assert.Equal(t, []Delta{{owner, 5}}, out.Deltas)

	c, out2, err := Apply(c, voter, Up)
	require.NoError(t, err)
	assert.Empty(t, c.Votes)
	assert.Empty(t, sumDeltas(out, out2))
}

func TestScoreAndTally(t *testing.T) {
	e := post(map[int]Value{2: Up, 3: Up, 4: Down})

	assert.Equal(t, 1, e.Score())
	up, down := e.Tally()
	assert.Equal(t, 2, up)
	assert.Equal(t, 1, down)
}

func TestRevokeCancelsLiveVotes(t *testing.T) {
	e := post(nil)
	var outs []Outcome
	for _, step := range []struct {
		who int
		v   Value
	}{{2, Up}, {3, Down}, {owner, Up}, {4, Up}, {4, Down}} {
		var out Outcome
		var err error
		e, out, err = Apply(e, step.who, step.v)
		require.NoError(t, err)
		outs = append(outs, out)
	}

	deltas, err := Revoke(e)
	require.NoError(t, err)

	assert.Empty(t, sumDeltas(append(outs, Outcome{Deltas: deltas})...))
}
