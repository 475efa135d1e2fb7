package paxos

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
)

var Logger = logger.GetLogger("paxos")

// Engine is the acceptor and learner of one node. All calls are serialized.
type Engine[V comparable] struct {
	mu      sync.Mutex
	name    string
	log     *Log[V]
	failure IFailureInjector
	journal IJournal[V]
}

// NewEngine creates an engine working on log. failure may be nil to disable
// failure injection, journal may be nil to keep learned values in memory only.
func NewEngine[V comparable](name string, log *Log[V], failure IFailureInjector, journal IJournal[V]) *Engine[V] {
	if failure == nil {
		failure = NoFailures()
	}
	return &Engine[V]{
		name:    name,
		log:     log,
		failure: failure,
		journal: journal,
	}
}

// Log returns the log the engine works on.
func (e *Engine[V]) Log() *Log[V] {
	return e.log
}

func (e *Engine[V]) Prepare(round, id int64) (Promise[V], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failure.MightFail() {
		Logger.Debugf("%s: prepare(%d, %d) dropped by failure injection", e.name, round, id)
		return Promise[V]{}, ErrUnavailable
	}

	rec, ok := e.log.Record(round)
	if !ok {
		e.log.setRecord(round, Record[V]{Promised: id})
		return Promise[V]{ID: id}, nil
	}
	if id <= rec.Promised {
		return Promise[V]{}, fmt.Errorf("%w: prepare(%d, %d), already promised %d", ErrRejected, round, id, rec.Promised)
	}

	rec.Promised = id
	e.log.setRecord(round, rec)
	return Promise[V]{ID: id, Accepted: rec.Accepted}, nil
}

func (e *Engine[V]) Accept(round int64, proposal Proposal[V]) (V, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V
	if e.failure.MightFail() {
		Logger.Debugf("%s: accept(%d, %s) dropped by failure injection", e.name, round, proposal)
		return zero, ErrUnavailable
	}

	rec, ok := e.log.Record(round)
	if !ok {
		Logger.Errorf("%s: accept(%d, %s) for a round that was never prepared", e.name, round, proposal)
		return zero, fmt.Errorf("%w: accept for round %d before prepare", ErrProtocol, round)
	}
	if proposal.ID != rec.Promised {
		return zero, fmt.Errorf("%w: accept(%d, %d), promised %d", ErrRejected, round, proposal.ID, rec.Promised)
	}

	p := proposal
	rec.Accepted = &p
	e.log.setRecord(round, rec)
	return proposal.Value, nil
}

func (e *Engine[V]) Learn(round int64, value V) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failure.MightFail() {
		Logger.Debugf("%s: learn(%d) dropped by failure injection", e.name, round)
		return ErrUnavailable
	}

	if prev, ok := e.log.Learned(round); ok {
		if prev != value {
			Logger.Errorf("%s: round %d learned %v, previously learned %v", e.name, round, value, prev)
		}
		return nil
	}

	e.log.setLearned(round, value)
	Logger.Debugf("%s: learned round %d: %v", e.name, round, value)
	if e.journal != nil {
		if err := e.journal.Append(round, value); err != nil {
			Logger.Errorf("%s: failed to journal round %d: %v", e.name, round, err)
		}
	}
	return nil
}
