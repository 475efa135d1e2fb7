package paxos

import (
	"context"
	"errors"
	"fmt"
	"github.com/panunburn/kv/lib/ids"
)

// Member is an acceptor taking part in a round, identified by name.
type Member[V comparable] struct {
	Name     string
	Acceptor IAcceptor[V]
}

// IQuorum is the membership a proposer works against.
type IQuorum[V comparable] interface {
	// Members returns the current acceptors, including the proposer's own node.
	Members() []Member[V]
	// Exclude permanently removes members that failed to respond.
	Exclude(names []string)
}

// Proposer runs rounds as the distinguished proposer of a cluster.
type Proposer[V comparable] struct {
	ids     ids.IIdSource
	quorum  IQuorum[V]
	failure IFailureInjector
}

// NewProposer creates a proposer minting proposal ids from idSource.
// failure may be nil.
func NewProposer[V comparable](idSource ids.IIdSource, quorum IQuorum[V], failure IFailureInjector) *Proposer[V] {
	if failure == nil {
		failure = NoFailures()
	}
	return &Proposer[V]{
		ids:     idSource,
		quorum:  quorum,
		failure: failure,
	}
}

// majority returns the smallest number of members that is more than half of n.
func majority(n int) int {
	return n/2 + 1
}

// Propose runs one round proposing value. It returns true if value was chosen
// for round and false if another value was chosen, in which case the caller
// should propose again in a later round. An error means the round was
// abandoned and may be retried.
func (p *Proposer[V]) Propose(ctx context.Context, round int64, value V) (bool, error) {
	id, promises, err := p.prepare(ctx, round)
	if err != nil {
		return false, err
	}

	if p.failure.MightFail() {
		return false, fmt.Errorf("%w: after prepare of round %d", ErrProposerFailed, round)
	}

	proposal := Proposal[V]{ID: id, Value: value}
	if adopted := highestAccepted(promises); adopted != nil {
		proposal.Value = adopted.Value
		if adopted.Value != value {
			Logger.Debugf("round %d: adopting %s", round, adopted)
		}
	}

	agreed, err := p.accept(ctx, round, proposal, promises)
	if err != nil {
		return false, err
	}

	if p.failure.MightFail() {
		return false, fmt.Errorf("%w: after accept of round %d", ErrProposerFailed, round)
	}

	p.learn(round, agreed)
	return agreed == value, nil
}

type promised[V comparable] struct {
	promise  Promise[V]
	acceptor IAcceptor[V]
}

// prepare mints proposal ids until a majority of the current members promised one.
func (p *Proposer[V]) prepare(ctx context.Context, round int64) (int64, map[string]promised[V], error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		members := p.quorum.Members()
		if len(members) == 0 {
			return 0, nil, fmt.Errorf("%w: no members", ErrNoQuorum)
		}

		id, err := p.ids.Next()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to mint proposal id: %w", err)
		}

		promises := make(map[string]promised[V], len(members))
		var unresponsive []string
		for _, m := range members {
			pr, err := m.Acceptor.Prepare(round, id)
			switch {
			case err == nil:
				promises[m.Name] = promised[V]{promise: pr, acceptor: m.Acceptor}
			case errors.Is(err, ErrRejected):
				Logger.Debugf("round %d: %s rejected prepare %d", round, m.Name, id)
			case errors.Is(err, ErrUnavailable):
				Logger.Debugf("round %d: %s unavailable for prepare %d", round, m.Name, id)
			default:
				Logger.Warningf("round %d: %s did not respond to prepare: %v", round, m.Name, err)
				unresponsive = append(unresponsive, m.Name)
			}
		}
		p.exclude(unresponsive)

		if need := majority(len(p.quorum.Members())); len(promises) >= need {
			return id, promises, nil
		}
		Logger.Debugf("round %d: %d promise(s) for id %d, retrying with a new id", round, len(promises), id)
	}
}

// accept sends proposal to every member that promised until a majority accepted it.
func (p *Proposer[V]) accept(ctx context.Context, round int64, proposal Proposal[V], promises map[string]promised[V]) (V, error) {
	var zero V
	pending := make(map[string]IAcceptor[V], len(promises))
	for name, pr := range promises {
		pending[name] = pr.acceptor
	}

	accepted := make(map[string]V, len(promises))
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		var unresponsive []string
		for name, acceptor := range pending {
			v, err := acceptor.Accept(round, proposal)
			switch {
			case err == nil:
				accepted[name] = v
				delete(pending, name)
			case errors.Is(err, ErrUnavailable):
				Logger.Debugf("round %d: %s unavailable for accept %d", round, name, proposal.ID)
			case errors.Is(err, ErrRejected):
				Logger.Debugf("round %d: %s rejected accept %d", round, name, proposal.ID)
				delete(pending, name)
			case errors.Is(err, ErrProtocol):
				Logger.Warningf("round %d: %s reported %v", round, name, err)
				delete(pending, name)
			default:
				Logger.Warningf("round %d: %s did not respond to accept: %v", round, name, err)
				unresponsive = append(unresponsive, name)
				delete(pending, name)
			}
		}
		p.exclude(unresponsive)

		need := majority(len(p.quorum.Members()))
		if len(accepted) >= need {
			for _, v := range accepted {
				return v, nil
			}
		}
		if len(accepted)+len(pending) < need {
			return zero, fmt.Errorf("%w: round %d proposal %d accepted by %d, need %d", ErrNoQuorum, round, proposal.ID, len(accepted), need)
		}
	}
}

// learn tells every member about the chosen value. Failures are not retried.
func (p *Proposer[V]) learn(round int64, value V) {
	var unresponsive []string
	for _, m := range p.quorum.Members() {
		err := m.Acceptor.Learn(round, value)
		switch {
		case err == nil:
		case IsNoResponse(err):
			Logger.Debugf("round %d: %s dropped learn", round, m.Name)
		default:
			Logger.Warningf("round %d: %s did not respond to learn: %v", round, m.Name, err)
			unresponsive = append(unresponsive, m.Name)
		}
	}
	p.exclude(unresponsive)
}

func (p *Proposer[V]) exclude(names []string) {
	if len(names) > 0 {
		p.quorum.Exclude(names)
	}
}

// highestAccepted returns the accepted proposal with the highest proposal id
// among the promises, or nil if none carries one.
func highestAccepted[V comparable](promises map[string]promised[V]) *Proposal[V] {
	var best *Proposal[V]
	for _, pr := range promises {
		if a := pr.promise.Accepted; a != nil && (best == nil || a.ID > best.ID) {
			best = a
		}
	}
	return best
}
