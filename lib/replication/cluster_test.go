package replication

import (
	"fmt"
	"github.com/panunburn/kv/lib/ids"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/readset"
	"github.com/panunburn/kv/lib/store/lstore"
	"github.com/stretchr/testify/require"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

func testAddr(i int) protocol.Address {
	return protocol.Address{Host: "127.0.0.1", Port: 9000 + i}
}

var errConnRefused = fmt.Errorf("%w: connection refused", ErrUnreachable)

// flakyReplica forwards to a replica until it is taken down. While
// outOfOrder is positive each accept fails as a protocol error instead.
type flakyReplica struct {
	IReplica
	down       atomic.Bool
	failRemove atomic.Bool
	outOfOrder atomic.Int32
	accepts    atomic.Int32
}

func (f *flakyReplica) Add(addr protocol.Address, handle IReplica) error {
	if f.down.Load() {
		return errConnRefused
	}
	return f.IReplica.Add(addr, handle)
}

func (f *flakyReplica) Remove(addr protocol.Address) error {
	if f.down.Load() || f.failRemove.Load() {
		return errConnRefused
	}
	return f.IReplica.Remove(addr)
}

func (f *flakyReplica) Validate(tx protocol.Transaction) (bool, error) {
	if f.down.Load() {
		return false, errConnRefused
	}
	return f.IReplica.Validate(tx)
}

func (f *flakyReplica) Commit(tx protocol.Transaction) error {
	if f.down.Load() {
		return errConnRefused
	}
	return f.IReplica.Commit(tx)
}

func (f *flakyReplica) Abort(tx protocol.Transaction) error {
	if f.down.Load() {
		return errConnRefused
	}
	return f.IReplica.Abort(tx)
}

func (f *flakyReplica) Shutdown() error {
	if f.down.Load() {
		return errConnRefused
	}
	return f.IReplica.Shutdown()
}

func (f *flakyReplica) Prepare(round, id int64) (paxos.Promise[protocol.Transaction], error) {
	if f.down.Load() {
		return paxos.Promise[protocol.Transaction]{}, errConnRefused
	}
	return f.IReplica.Prepare(round, id)
}

func (f *flakyReplica) Accept(round int64, p paxos.Proposal[protocol.Transaction]) (protocol.Transaction, error) {
	if f.down.Load() {
		return protocol.Transaction{}, errConnRefused
	}
	f.accepts.Add(1)
	if f.outOfOrder.Add(-1) >= 0 {
		return protocol.Transaction{}, fmt.Errorf("%w: accept(%d) before prepare", paxos.ErrProtocol, round)
	}
	return f.IReplica.Accept(round, p)
}

func (f *flakyReplica) Learn(round int64, v protocol.Transaction) error {
	if f.down.Load() {
		return errConnRefused
	}
	return f.IReplica.Learn(round, v)
}

// recordingListener remembers the transactions a replica aborted and whether
// it was asked to shut down.
type recordingListener struct {
	LoggingListener
	mu       sync.Mutex
	aborted  []string
	shutdown bool
}

func (l *recordingListener) OnAbort(tx protocol.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.aborted = append(l.aborted, tx.ID)
}

func (l *recordingListener) OnShutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shutdown = true
}

func (l *recordingListener) abortCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.aborted)
}

type testNode struct {
	addr     protocol.Address
	state    *State
	readset  *readset.ReadSet
	engine   *paxos.Engine[protocol.Transaction]
	replica  *Replica
	handle   *flakyReplica
	listener *recordingListener
	gateway  IGateway
}

type testCluster struct {
	coordinator *Coordinator
	state       *State
	readset     *readset.ReadSet
	gateway     IGateway

	mu    sync.Mutex
	nodes map[protocol.Address]*testNode
}

func newTestCluster(t *testing.T, replicas int) *testCluster {
	t.Helper()

	state := NewState(lstore.NewLocalStore(), paxos.NewLog[protocol.Transaction]())
	engine := paxos.NewEngine[protocol.Transaction]("coordinator", state.Log, nil, nil)
	rs := readset.New()
	c := NewCoordinator(testAddr(0), state, rs, engine, ids.NewMemorySource(), Config{
		LogWorkers:   2,
		LogTimeout:   5 * time.Second,
		DrainTimeout: 2 * time.Second,
	})
	t.Cleanup(func() { _ = c.Shutdown() })

	tc := &testCluster{
		coordinator: c,
		state:       state,
		readset:     rs,
		gateway:     NewGateway(c, state.Store, rs),
		nodes:       make(map[protocol.Address]*testNode),
	}
	for i := 1; i <= replicas; i++ {
		tc.join(t, testAddr(i))
	}
	return tc
}

func (tc *testCluster) dial(addr protocol.Address) (IReplica, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	n, ok := tc.nodes[addr]
	if !ok {
		return nil, fmt.Errorf("%w: unknown node %s", ErrUnreachable, addr)
	}
	return n.handle, nil
}

// connect runs the first half of a join and returns the node without registering it.
func (tc *testCluster) connect(t *testing.T, addr protocol.Address) *testNode {
	t.Helper()
	snap, err := tc.coordinator.Connect(addr)
	require.NoError(t, err)

	state := snap.Restore(lstore.NewLocalStore(), paxos.NewLog[protocol.Transaction](), addr, tc.dial)
	n := &testNode{
		addr:     addr,
		state:    state,
		readset:  readset.New(),
		listener: &recordingListener{},
	}
	n.engine = paxos.NewEngine[protocol.Transaction](addr.String(), state.Log, nil, nil)
	n.replica = NewReplica(state, n.readset, n.engine, n.listener)
	n.handle = &flakyReplica{IReplica: n.replica}
	n.gateway = NewGateway(tc.coordinator, state.Store, n.readset)

	tc.mu.Lock()
	tc.nodes[addr] = n
	tc.mu.Unlock()
	return n
}

func (tc *testCluster) join(t *testing.T, addr protocol.Address) *testNode {
	t.Helper()
	n := tc.connect(t, addr)
	require.NoError(t, tc.coordinator.Register(addr, n.handle))
	return n
}

func (tc *testCluster) node(i int) *testNode {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.nodes[testAddr(i)]
}

// --------------------------------------------------------------------------
// Membership
// --------------------------------------------------------------------------

func TestJoinAnnouncesNewMember(t *testing.T) {
	tc := newTestCluster(t, 3)

	require.Equal(t, []protocol.Address{testAddr(1), testAddr(2), testAddr(3)}, tc.coordinator.Members())

	// every replica knows every other replica
	require.Equal(t, []protocol.Address{testAddr(2), testAddr(3)}, tc.node(1).replica.Members())
	require.Equal(t, []protocol.Address{testAddr(1), testAddr(3)}, tc.node(2).replica.Members())
	require.Equal(t, []protocol.Address{testAddr(1), testAddr(2)}, tc.node(3).replica.Members())
}

func TestJoinReceivesStore(t *testing.T) {
	tc := newTestCluster(t, 1)
	_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
	require.NoError(t, err)

	n := tc.join(t, testAddr(2))
	v, ok := n.state.Store.Get("a")
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestDisconnect(t *testing.T) {
	tc := newTestCluster(t, 3)

	require.NoError(t, tc.coordinator.Disconnect(testAddr(2)))
	require.Equal(t, []protocol.Address{testAddr(1), testAddr(3)}, tc.coordinator.Members())
	require.Equal(t, []protocol.Address{testAddr(3)}, tc.node(1).replica.Members())
	require.Equal(t, []protocol.Address{testAddr(1)}, tc.node(3).replica.Members())

	// unknown nodes are ignored
	require.NoError(t, tc.coordinator.Disconnect(testAddr(42)))
}

func TestOperationsWaitForPartialJoin(t *testing.T) {
	tc := newTestCluster(t, 1)
	joining := tc.connect(t, testAddr(2))

	done := make(chan error, 1)
	go func() {
		_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("broadcast completed while a node was partially joined")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, tc.coordinator.Register(testAddr(2), joining.handle))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not resume after the join completed")
	}

	v, ok := joining.state.Store.Get("a")
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestAbandonedJoinReleasesWaiters(t *testing.T) {
	tc := newTestCluster(t, 1)
	tc.connect(t, testAddr(2))

	done := make(chan error, 1)
	go func() {
		_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
		done <- err
	}()

	require.NoError(t, tc.coordinator.Disconnect(testAddr(2)))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not resume after the join was abandoned")
	}
	require.Equal(t, []protocol.Address{testAddr(1)}, tc.coordinator.Members())
}

func TestExcludeConverges(t *testing.T) {
	tc := newTestCluster(t, 4)

	// node 1 is dead, node 2 fails to take the removal of node 1
	tc.node(1).handle.down.Store(true)
	tc.node(2).handle.failRemove.Store(true)

	tc.coordinator.Exclude(testAddr(1))

	require.Equal(t, []protocol.Address{testAddr(3), testAddr(4)}, tc.coordinator.Members())
	require.Equal(t, []protocol.Address{testAddr(4)}, tc.node(3).replica.Members())
	require.Equal(t, []protocol.Address{testAddr(3)}, tc.node(4).replica.Members())
}

func TestRegisterExcludesUnreachablePeers(t *testing.T) {
	tc := newTestCluster(t, 2)
	tc.node(1).handle.down.Store(true)

	tc.join(t, testAddr(3))

	require.Equal(t, []protocol.Address{testAddr(2), testAddr(3)}, tc.coordinator.Members())
	require.Equal(t, []protocol.Address{testAddr(3)}, tc.node(2).replica.Members())
}

func TestShutdown(t *testing.T) {
	tc := newTestCluster(t, 2)
	tc.node(2).handle.down.Store(true)

	require.NoError(t, tc.coordinator.Shutdown())
	require.True(t, tc.node(1).replica.Stopped())
	require.True(t, tc.node(1).listener.shutdown)

	_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
	require.ErrorIs(t, err, ErrShuttingDown)
	_, err = tc.coordinator.Connect(testAddr(5))
	require.ErrorIs(t, err, ErrShuttingDown)

	// a second shutdown is a no-op
	require.NoError(t, tc.coordinator.Shutdown())
}

// --------------------------------------------------------------------------
// Two-Phase Commit
// --------------------------------------------------------------------------

func TestPutIsVisibleOnEveryReplica(t *testing.T) {
	tc := newTestCluster(t, 3)

	res, err := tc.node(2).gateway.Process(protocol.Put("a", "b"))
	require.NoError(t, err)
	require.False(t, res.Found)

	for i := 1; i <= 3; i++ {
		res, err := tc.node(i).gateway.Process(protocol.Get("a"))
		require.NoError(t, err)
		require.True(t, res.Found)
		require.Equal(t, "b", res.Value)
	}
	res, err = tc.gateway.Process(protocol.Get("a"))
	require.NoError(t, err)
	require.Equal(t, "b", res.Value)

	res, err = tc.gateway.Process(protocol.Delete("a"))
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, "b", res.Value)
	for i := 1; i <= 3; i++ {
		_, ok := tc.node(i).state.Store.Get("a")
		require.False(t, ok)
	}
}

func TestConflictingReadAbortsWrite(t *testing.T) {
	tc := newTestCluster(t, 3)
	_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
	require.NoError(t, err)

	// a read of "a" is in flight on node 2
	tc.node(2).readset.Mark("a")

	_, err = tc.coordinator.Broadcast(protocol.Put("a", "c"))
	require.ErrorIs(t, err, ErrTransactionAbort)

	for i := 1; i <= 3; i++ {
		v, _ := tc.node(i).state.Store.Get("a")
		require.Equal(t, "b", v, "node %d must be unchanged", i)
	}
	v, _ := tc.state.Store.Get("a")
	require.Equal(t, "b", v)

	// the nodes that voted yes were told to abort
	require.Equal(t, 1, tc.node(1).listener.abortCount())
	require.Equal(t, 0, tc.node(2).listener.abortCount())
	require.Equal(t, 1, tc.node(3).listener.abortCount())

	// once the read finished the write goes through
	tc.node(2).readset.Unmark("a")
	_, err = tc.coordinator.Broadcast(protocol.Put("a", "c"))
	require.NoError(t, err)
	v, _ = tc.node(2).state.Store.Get("a")
	require.Equal(t, "c", v)
}

func TestConflictOnCoordinatorAbortsWrite(t *testing.T) {
	tc := newTestCluster(t, 2)
	tc.readset.Mark("a")

	_, err := tc.coordinator.Broadcast(protocol.Put("a", "c"))
	require.ErrorIs(t, err, ErrTransactionAbort)
	require.Equal(t, 1, tc.node(1).listener.abortCount())
	require.Equal(t, 1, tc.node(2).listener.abortCount())
}

func TestUnresponsiveReplicaIsExcludedDuringBroadcast(t *testing.T) {
	tc := newTestCluster(t, 3)
	tc.node(2).handle.down.Store(true)

	_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
	require.NoError(t, err)

	require.Equal(t, []protocol.Address{testAddr(1), testAddr(3)}, tc.coordinator.Members())
	require.Equal(t, []protocol.Address{testAddr(3)}, tc.node(1).replica.Members())
	require.Equal(t, []protocol.Address{testAddr(1)}, tc.node(3).replica.Members())

	for _, i := range []int{1, 3} {
		v, ok := tc.node(i).state.Store.Get("a")
		require.True(t, ok)
		require.Equal(t, "b", v)
	}
}

func TestInvalidRequest(t *testing.T) {
	tc := newTestCluster(t, 1)
	_, err := tc.node(1).gateway.Process(protocol.Command{Kind: protocol.KindPut})
	require.ErrorIs(t, err, protocol.ErrInvalidRequest)
	_, err = tc.coordinator.Broadcast(protocol.Command{})
	require.ErrorIs(t, err, protocol.ErrInvalidRequest)
}

func TestPrintIsCommitted(t *testing.T) {
	tc := newTestCluster(t, 2)
	_, err := tc.node(1).gateway.Process(protocol.Print())
	require.NoError(t, err)
}

// --------------------------------------------------------------------------
// Replicated Log
// --------------------------------------------------------------------------

func TestCommittedWritesAreAppendedToTheLog(t *testing.T) {
	tc := newTestCluster(t, 3)

	for i := 0; i < 5; i++ {
		_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
		require.NoError(t, err)
	}

	// identical commands occupy distinct rounds
	require.Eventually(t, func() bool {
		return len(tc.state.Log.LearnedValues()) == 5
	}, 5*time.Second, 10*time.Millisecond)

	learned := tc.state.Log.LearnedValues()
	seen := make(map[string]bool)
	for round := int64(1); round <= 5; round++ {
		tx, ok := learned[round]
		require.True(t, ok, "round %d", round)
		require.Equal(t, protocol.Put("a", "b"), tx.Command)
		seen[tx.ID] = true
	}
	require.Len(t, seen, 5)

	// every replica learned the same values
	require.Eventually(t, func() bool {
		for i := 1; i <= 3; i++ {
			if len(tc.node(i).state.Log.LearnedValues()) != 5 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
	for i := 1; i <= 3; i++ {
		require.Equal(t, learned, tc.node(i).state.Log.LearnedValues())
	}
}

func TestLogAppendSurvivesUnresponsiveReplica(t *testing.T) {
	tc := newTestCluster(t, 4)

	_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
	require.NoError(t, err)
	tc.node(4).handle.down.Store(true)

	_, err = tc.coordinator.Broadcast(protocol.Put("c", "d"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(tc.state.Log.LearnedValues()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.NotContains(t, tc.coordinator.Members(), testAddr(4))
}

func TestLogAppendRetriesRoundAfterProtocolError(t *testing.T) {
	tests := []struct {
		name       string
		outOfOrder int32
	}{
		{name: "Once", outOfOrder: 1},
		{name: "Repeatedly", outOfOrder: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// coordinator and one replica, so every accept is needed
			tc := newTestCluster(t, 1)
			replica := tc.node(1).handle
			replica.outOfOrder.Store(tt.outOfOrder)

			_, err := tc.coordinator.Broadcast(protocol.Put("a", "b"))
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				return len(tc.state.Log.LearnedValues()) == 1
			}, 5*time.Second, 10*time.Millisecond)

			tx, ok := tc.state.Log.LearnedValues()[1]
			require.True(t, ok, "appended to a later round")
			require.Equal(t, protocol.Put("a", "b"), tx.Command)
			require.GreaterOrEqual(t, replica.accepts.Load(), tt.outOfOrder+1)
			require.Contains(t, tc.coordinator.Members(), testAddr(1))
		})
	}
}
