package replication

import (
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/readset"
	"sync"
)

// Replica is the participant side of a node. Every call is serialized by the
// replica's lock.
type Replica struct {
	mu       sync.Mutex
	state    *State
	readset  *readset.ReadSet
	engine   *paxos.Engine[protocol.Transaction]
	listener IParticipantListener
	stopped  bool
}

// NewReplica creates a replica. engine must work on state.Log. listener may be nil.
func NewReplica(state *State, rs *readset.ReadSet, engine *paxos.Engine[protocol.Transaction], listener IParticipantListener) *Replica {
	if listener == nil {
		listener = LoggingListener{}
	}
	return &Replica{
		state:    state,
		readset:  rs,
		engine:   engine,
		listener: listener,
	}
}

// Members returns the replica's view of the directory.
func (r *Replica) Members() []protocol.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Members()
}

// Stopped reports whether the coordinator asked the replica to shut down.
func (r *Replica) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replication.IReplica)
// --------------------------------------------------------------------------

func (r *Replica) Add(addr protocol.Address, handle IReplica) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener.OnAdd(addr)
	r.state.Join(addr, handle)
	return nil
}

func (r *Replica) Remove(addr protocol.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener.OnRemove(addr)
	r.state.Drop(addr)
	return nil
}

func (r *Replica) Validate(tx protocol.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vote := r.readset.Validate(tx.Command)
	r.listener.OnValidate(tx, vote)
	return vote, nil
}

func (r *Replica) Commit(tx protocol.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener.OnCommit(tx)
	apply(r.state, tx.Command)
	return nil
}

func (r *Replica) Abort(tx protocol.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener.OnAbort(tx)
	return nil
}

func (r *Replica) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true
	r.listener.OnShutdown()
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see paxos.IAcceptor)
// --------------------------------------------------------------------------

func (r *Replica) Prepare(round, id int64) (paxos.Promise[protocol.Transaction], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Prepare(round, id)
}

func (r *Replica) Accept(round int64, proposal paxos.Proposal[protocol.Transaction]) (protocol.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Accept(round, proposal)
}

func (r *Replica) Learn(round int64, value protocol.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Learn(round, value)
}
