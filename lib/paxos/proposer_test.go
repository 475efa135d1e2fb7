package paxos

import (
	"context"
	"errors"
	"fmt"
	"github.com/panunburn/kv/lib/ids"
	"github.com/stretchr/testify/require"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// staticQuorum is a fixed set of acceptors that records exclusions.
type staticQuorum struct {
	mu       sync.Mutex
	members  []Member[string]
	excluded []string
}

func newStaticQuorum(engines ...IAcceptor[string]) *staticQuorum {
	q := &staticQuorum{}
	for i, e := range engines {
		q.members = append(q.members, Member[string]{Name: fmt.Sprintf("n%d", i), Acceptor: e})
	}
	return q
}

func (q *staticQuorum) Members() []Member[string] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Member[string](nil), q.members...)
}

func (q *staticQuorum) Exclude(names []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.excluded = append(q.excluded, names...)
	kept := q.members[:0]
	for _, m := range q.members {
		excluded := false
		for _, n := range names {
			if m.Name == n {
				excluded = true
			}
		}
		if !excluded {
			kept = append(kept, m)
		}
	}
	q.members = kept
}

// deadAcceptor never responds.
type deadAcceptor struct{}

var errDead = errors.New("connection refused")

func (deadAcceptor) Prepare(int64, int64) (Promise[string], error) {
	return Promise[string]{}, errDead
}
func (deadAcceptor) Accept(int64, Proposal[string]) (string, error) { return "", errDead }
func (deadAcceptor) Learn(int64, string) error                      { return errDead }

// outOfOrderAcceptor promises like its engine but reports every accept as
// arriving before a prepare.
type outOfOrderAcceptor struct {
	*Engine[string]
}

func (outOfOrderAcceptor) Accept(round int64, _ Proposal[string]) (string, error) {
	return "", fmt.Errorf("%w: accept(%d) before prepare", ErrProtocol, round)
}

func newEngines(n int) []*Engine[string] {
	engines := make([]*Engine[string], n)
	for i := range engines {
		engines[i] = NewEngine[string](fmt.Sprintf("n%d", i), NewLog[string](), nil, nil)
	}
	return engines
}

func acceptors(engines []*Engine[string]) []IAcceptor[string] {
	out := make([]IAcceptor[string], len(engines))
	for i, e := range engines {
		out[i] = e
	}
	return out
}

func TestProposeSingleProposer(t *testing.T) {
	engines := newEngines(3)
	p := NewProposer[string](ids.NewMemorySource(), newStaticQuorum(acceptors(engines)...), nil)

	won, err := p.Propose(context.Background(), 1, "x")
	require.NoError(t, err)
	require.True(t, won)

	for _, e := range engines {
		v, ok := e.Log().Learned(1)
		require.True(t, ok)
		require.Equal(t, "x", v)
	}
}

func TestProposeAdoptsHighestAcceptedValue(t *testing.T) {
	engines := newEngines(3)

	// n0 accepted "old" under id 1, n1 accepted "newer" under id 2
	_, _ = engines[0].Prepare(1, 1)
	_, _ = engines[0].Accept(1, Proposal[string]{ID: 1, Value: "old"})
	_, _ = engines[1].Prepare(1, 2)
	_, _ = engines[1].Accept(1, Proposal[string]{ID: 2, Value: "newer"})

	source := ids.NewMemorySource()
	for i := 0; i < 10; i++ {
		_, _ = source.Next()
	}

	p := NewProposer[string](source, newStaticQuorum(acceptors(engines)...), nil)
	won, err := p.Propose(context.Background(), 1, "mine")
	require.NoError(t, err)
	require.False(t, won, "a previously accepted value must be adopted")

	for _, e := range engines {
		v, ok := e.Log().Learned(1)
		require.True(t, ok)
		require.Equal(t, "newer", v)
	}

	// the next round is free
	won, err = p.Propose(context.Background(), 2, "mine")
	require.NoError(t, err)
	require.True(t, won)
}

func TestProposeExcludesUnresponsiveMembers(t *testing.T) {
	engines := newEngines(2)
	q := newStaticQuorum(engines[0], engines[1], deadAcceptor{})
	p := NewProposer[string](ids.NewMemorySource(), q, nil)

	won, err := p.Propose(context.Background(), 1, "x")
	require.NoError(t, err)
	require.True(t, won)
	require.Equal(t, []string{"n2"}, q.excluded)
	require.Len(t, q.Members(), 2)
}

func TestProposeSurvivesProtocolErrors(t *testing.T) {
	tests := []struct {
		name       string
		healthy    int
		outOfOrder int
		wantErr    error
	}{
		{name: "MajorityLeft", healthy: 2, outOfOrder: 1},
		{name: "NoMajority", healthy: 1, outOfOrder: 2, wantErr: ErrNoQuorum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engines := newEngines(tt.healthy + tt.outOfOrder)
			members := acceptors(engines)
			for i := tt.healthy; i < len(members); i++ {
				members[i] = outOfOrderAcceptor{engines[i]}
			}
			q := newStaticQuorum(members...)
			p := NewProposer[string](ids.NewMemorySource(), q, nil)

			won, err := p.Propose(context.Background(), 1, "x")
			// a protocol error is not a departure
			require.Empty(t, q.excluded)
			require.Len(t, q.Members(), len(members))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				for _, e := range engines {
					_, ok := e.Log().Learned(1)
					require.False(t, ok)
				}
				return
			}
			require.NoError(t, err)
			require.True(t, won)
			for _, e := range engines[:tt.healthy] {
				v, ok := e.Log().Learned(1)
				require.True(t, ok)
				require.Equal(t, "x", v)
			}
		})
	}
}

func TestProposeWithoutMembers(t *testing.T) {
	p := NewProposer[string](ids.NewMemorySource(), newStaticQuorum(), nil)
	_, err := p.Propose(context.Background(), 1, "x")
	require.ErrorIs(t, err, ErrNoQuorum)
}

func TestProposeProposerFailure(t *testing.T) {
	engines := newEngines(3)
	p := NewProposer[string](ids.NewMemorySource(), newStaticQuorum(acceptors(engines)...), alwaysFail{})

	_, err := p.Propose(context.Background(), 1, "x")
	require.ErrorIs(t, err, ErrProposerFailed)
}

func TestProposeCanceled(t *testing.T) {
	engines := newEngines(3)
	p := NewProposer[string](ids.NewMemorySource(), newStaticQuorum(acceptors(engines)...), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Propose(ctx, 1, "x")
	require.ErrorIs(t, err, context.Canceled)
}

// Two proposers race on the same round. Exactly one value may be learned.
func TestConcurrentProposersAgree(t *testing.T) {
	for run := 0; run < 20; run++ {
		engines := newEngines(5)
		source := ids.NewMemorySource()

		values := []string{"X", "Y"}
		won := make([]bool, len(values))

		var wg sync.WaitGroup
		for i, value := range values {
			wg.Add(1)
			go func(i int, value string) {
				defer wg.Done()
				p := NewProposer[string](source, newStaticQuorum(acceptors(engines)...), nil)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				for {
					ok, err := p.Propose(ctx, 5, value)
					if err == nil {
						won[i] = ok
						return
					}
					if ctx.Err() != nil {
						t.Errorf("proposer %s did not finish: %v", value, err)
						return
					}
					time.Sleep(time.Duration(rand.Intn(500)) * time.Microsecond)
				}
			}(i, value)
		}
		wg.Wait()

		require.NotEqual(t, won[0], won[1], "exactly one proposer must win round 5")

		var learned string
		for _, e := range engines {
			v, ok := e.Log().Learned(5)
			if !ok {
				continue
			}
			if learned == "" {
				learned = v
			}
			require.Equal(t, learned, v, "all acceptors must learn the same value")
		}
		require.NotEmpty(t, learned)
	}
}
