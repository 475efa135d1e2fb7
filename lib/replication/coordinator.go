package replication

import (
	"github.com/lni/dragonboat/v4/logger"
	"github.com/panunburn/kv/lib/ids"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/readset"
	"sync"
	"time"
)

var Logger = logger.GetLogger("replication")

// Config holds the tunables of the coordinator.
type Config struct {
	// LogWorkers is the number of background log appends running at once.
	LogWorkers int
	// LogTimeout bounds a single background log append.
	LogTimeout time.Duration
	// DrainTimeout bounds the wait for background work on shutdown.
	DrainTimeout time.Duration
	// Failures is the failure injector of the proposer. nil disables it.
	Failures paxos.IFailureInjector
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		LogWorkers:   4,
		LogTimeout:   5 * time.Second,
		DrainTimeout: 5 * time.Second,
		Failures:     paxos.NoFailures(),
	}
}

// Coordinator is the single orchestrator of a cluster. One mutex serializes
// every membership change, every broadcast and every consensus round.
type Coordinator struct {
	mu      sync.Mutex
	settled *sync.Cond
	partial map[protocol.Address]struct{}
	closed  bool

	self         protocol.Address
	state        *State
	readset      *readset.ReadSet
	engine       *paxos.Engine[protocol.Transaction]
	proposer     *paxos.Proposer[protocol.Transaction]
	workers      *workerPool
	drainTimeout time.Duration
}

// NewCoordinator creates the coordinator listening at self. engine must work
// on state.Log.
func NewCoordinator(self protocol.Address, state *State, rs *readset.ReadSet, engine *paxos.Engine[protocol.Transaction], idSource ids.IIdSource, cfg Config) *Coordinator {
	c := &Coordinator{
		partial:      make(map[protocol.Address]struct{}),
		self:         self,
		state:        state,
		readset:      rs,
		engine:       engine,
		workers:      newWorkerPool(cfg.LogWorkers, cfg.LogTimeout),
		drainTimeout: cfg.DrainTimeout,
	}
	c.settled = sync.NewCond(&c.mu)
	c.proposer = paxos.NewProposer[protocol.Transaction](idSource, coordinatorQuorum{c}, cfg.Failures)
	MembersTotal.Set(float64(len(state.Directory)))
	return c
}

// Members returns the fully joined replicas.
func (c *Coordinator) Members() []protocol.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Members()
}

// State returns the coordinator's replicated state. The directory must not
// be accessed without going through the coordinator.
func (c *Coordinator) State() *State {
	return c.state
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replication.ICoordinator)
// --------------------------------------------------------------------------

func (c *Coordinator) Connect(addr protocol.Address) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Snapshot{}, ErrShuttingDown
	}

	c.partial[addr] = struct{}{}
	PartialMembersTotal.Set(float64(len(c.partial)))
	Logger.Infof("%s connected, partially joined", addr)
	return c.state.Snapshot(), nil
}

func (c *Coordinator) Register(addr protocol.Address, handle IReplica) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrShuttingDown
	}

	c.state.Join(addr, handle)
	delete(c.partial, addr)
	PartialMembersTotal.Set(float64(len(c.partial)))
	MembersTotal.Set(float64(len(c.state.Directory)))
	c.settled.Broadcast()
	Logger.Infof("%s registered, fully joined", addr)

	c.waitForServicesLocked()

	unresponsive := make(map[protocol.Address]struct{})
	for peer, r := range c.state.Directory {
		if peer == addr {
			continue
		}
		if err := r.Add(addr, handle); err != nil {
			Logger.Warningf("failed to announce %s to %s: %v", addr, peer, err)
			unresponsive[peer] = struct{}{}
		}
	}
	c.excludeLocked(unresponsive)
	return nil
}

func (c *Coordinator) Disconnect(addr protocol.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// a node that fails between connect and register abandons its join
	if _, ok := c.partial[addr]; ok {
		delete(c.partial, addr)
		PartialMembersTotal.Set(float64(len(c.partial)))
		c.settled.Broadcast()
		Logger.Warningf("%s abandoned its join", addr)
		return nil
	}

	c.waitForServicesLocked()

	if !c.state.Drop(addr) {
		Logger.Warningf("disconnect of unknown node %s", addr)
		return nil
	}
	MembersTotal.Set(float64(len(c.state.Directory)))
	Logger.Infof("%s disconnected", addr)

	c.removeEverywhereLocked(addr)
	return nil
}

func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.waitForServicesLocked()
	c.closed = true

	for addr, r := range c.state.Directory {
		if err := r.Shutdown(); err != nil {
			Logger.Warningf("failed to shut down %s: %v", addr, err)
		}
	}
	Logger.Infof("asked %d replica(s) to shut down", len(c.state.Directory))
	c.mu.Unlock()

	if !c.workers.Stop(c.drainTimeout) {
		Logger.Warningf("background log appends were canceled during shutdown")
	}
	return nil
}

// --------------------------------------------------------------------------
// Membership Helpers
// --------------------------------------------------------------------------

// waitForServicesLocked blocks until no node is partially joined.
// It has no timeout.
func (c *Coordinator) waitForServicesLocked() {
	for len(c.partial) > 0 {
		Logger.Infof("waiting for %d partially joined node(s)", len(c.partial))
		c.settled.Wait()
	}
}

// excludeLocked removes every unresponsive node from the directory and tells
// the remaining peers. Peers failing to take the removal are excluded in turn
// until no new failures occur.
func (c *Coordinator) excludeLocked(unresponsive map[protocol.Address]struct{}) {
	for len(unresponsive) > 0 {
		for addr := range unresponsive {
			if !c.state.Drop(addr) {
				delete(unresponsive, addr)
				continue
			}
			ExclusionsTotal.Inc()
			Logger.Warningf("excluded unresponsive node %s", addr)
		}
		MembersTotal.Set(float64(len(c.state.Directory)))

		next := make(map[protocol.Address]struct{})
		for addr := range unresponsive {
			for peer, r := range c.state.Directory {
				if _, failed := next[peer]; failed {
					continue
				}
				if err := r.Remove(addr); err != nil {
					Logger.Warningf("failed to remove %s from %s: %v", addr, peer, err)
					next[peer] = struct{}{}
				}
			}
		}
		unresponsive = next
	}
}

// removeEverywhereLocked tells every peer that addr left.
func (c *Coordinator) removeEverywhereLocked(addr protocol.Address) {
	unresponsive := make(map[protocol.Address]struct{})
	for peer, r := range c.state.Directory {
		if err := r.Remove(addr); err != nil {
			Logger.Warningf("failed to remove %s from %s: %v", addr, peer, err)
			unresponsive[peer] = struct{}{}
		}
	}
	c.excludeLocked(unresponsive)
}

// Exclude removes unresponsive nodes from the cluster.
func (c *Coordinator) Exclude(unresponsive ...protocol.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := make(map[protocol.Address]struct{}, len(unresponsive))
	for _, addr := range unresponsive {
		set[addr] = struct{}{}
	}
	c.excludeLocked(set)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see paxos.IAcceptor)
// --------------------------------------------------------------------------

func (c *Coordinator) Prepare(round, id int64) (paxos.Promise[protocol.Transaction], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Prepare(round, id)
}

func (c *Coordinator) Accept(round int64, proposal paxos.Proposal[protocol.Transaction]) (protocol.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Accept(round, proposal)
}

func (c *Coordinator) Learn(round int64, value protocol.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Learn(round, value)
}

// --------------------------------------------------------------------------
// Quorum
// --------------------------------------------------------------------------

// coordinatorQuorum exposes the directory to the proposer. The proposer only
// runs while the coordinator's lock is held.
type coordinatorQuorum struct {
	c *Coordinator
}

func (q coordinatorQuorum) Members() []paxos.Member[protocol.Transaction] {
	members := make([]paxos.Member[protocol.Transaction], 0, len(q.c.state.Directory)+1)
	members = append(members, paxos.Member[protocol.Transaction]{Name: q.c.self.String(), Acceptor: q.c.engine})
	for _, addr := range q.c.state.Members() {
		members = append(members, paxos.Member[protocol.Transaction]{Name: addr.String(), Acceptor: q.c.state.Directory[addr]})
	}
	return members
}

func (q coordinatorQuorum) Exclude(names []string) {
	set := make(map[protocol.Address]struct{}, len(names))
	for _, name := range names {
		addr, err := protocol.ParseAddress(name)
		if err != nil || addr == q.c.self {
			continue
		}
		set[addr] = struct{}{}
	}
	q.c.excludeLocked(set)
}
