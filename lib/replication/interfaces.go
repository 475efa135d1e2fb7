package replication

import (
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
)

// IReplica is the protocol surface of a replica as seen by the coordinator
// and by other replicas.
type IReplica interface {
	paxos.IAcceptor[protocol.Transaction]

	// Add tells the replica that addr fully joined the cluster.
	Add(addr protocol.Address, handle IReplica) error
	// Remove tells the replica that addr left the cluster.
	Remove(addr protocol.Address) error
	// Validate returns the replica's vote for tx.
	Validate(tx protocol.Transaction) (bool, error)
	// Commit applies tx to the replica's store.
	Commit(tx protocol.Transaction) error
	// Abort tells the replica that tx will not be committed.
	Abort(tx protocol.Transaction) error
	// Shutdown asks the replica to stop serving.
	Shutdown() error
}

// ICoordinator is the protocol surface of the coordinator.
type ICoordinator interface {
	paxos.IAcceptor[protocol.Transaction]

	// Connect registers addr as partially joined and returns the state the
	// new node bootstraps from.
	Connect(addr protocol.Address) (Snapshot, error)
	// Register promotes addr to fully joined and announces it to every peer.
	Register(addr protocol.Address, handle IReplica) error
	// Disconnect removes addr from the cluster.
	Disconnect(addr protocol.Address) error
	// Shutdown stops every replica and the coordinator's background work.
	Shutdown() error
	// Broadcast commits cmd on every node and returns the local result.
	Broadcast(cmd protocol.Command) (protocol.Result, error)
}

// IGateway is the client entry point of a node.
type IGateway interface {
	// Process serves reads locally and forwards writes to the coordinator.
	Process(cmd protocol.Command) (protocol.Result, error)
}

// Dialer returns a handle for the replica listening at addr.
type Dialer func(addr protocol.Address) (IReplica, error)
