package paxos

import "fmt"

// Proposal is a value proposed under a proposal id.
type Proposal[V comparable] struct {
	ID    int64 `json:"id"`
	Value V     `json:"value"`
}

func (p Proposal[V]) String() string {
	return fmt.Sprintf("Proposal(%d, %v)", p.ID, p.Value)
}

// Promise is an acceptor's commitment not to accept proposals lower than ID.
// Accepted is the proposal the acceptor accepted earlier in the round, if any.
type Promise[V comparable] struct {
	ID       int64        `json:"id"`
	Accepted *Proposal[V] `json:"accepted,omitempty"`
}

// Record is the acceptor state of one round.
type Record[V comparable] struct {
	Promised int64        `json:"promised"`
	Accepted *Proposal[V] `json:"accepted,omitempty"`
}

// IAcceptor is the acceptor and learner surface of a node.
type IAcceptor[V comparable] interface {
	// Prepare asks the acceptor to promise id for round.
	Prepare(round, id int64) (Promise[V], error)
	// Accept asks the acceptor to accept proposal for round. On success the
	// accepted value is returned.
	Accept(round int64, proposal Proposal[V]) (V, error)
	// Learn tells the acceptor that value was chosen for round.
	Learn(round int64, value V) error
}
