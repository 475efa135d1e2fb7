/*
Package replication implements the replication coordination layer of the
store: cluster membership, two-phase commit of writes and the background
Paxos rounds that append every committed write to the replicated log.

Roles:

  - Coordinator: the single, externally designated node that owns the
    membership directory, runs the commit vote for every write and acts as
    the distinguished Paxos proposer.
  - Replica: every other node. It votes using its ReadSet, applies committed
    writes and acts as a Paxos acceptor.
  - Gateway: the client entry point of any node. Reads are served from the
    local store, writes are forwarded to the coordinator.

Joining:

	snapshot := coordinator.Connect(self)     // self is partially joined
	replica := replication.NewReplica(...)    // from the snapshot
	coordinator.Register(self, replica)       // self is fully joined

While any node is partially joined, every membership change and every
broadcast on the coordinator waits. The wait has no timeout: a node that
connects and never registers stalls the coordinator.

Failures:

Any error from a peer other than a "no" vote or a consensus decline is
treated as a permanent departure. The peer is excluded from the directory and
the removal is propagated to the remaining peers until no new failures occur.
*/
package replication
