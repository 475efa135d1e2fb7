package server

import (
	"fmt"
	"github.com/panunburn/kv/lib/ids"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/readset"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/lib/store/lstore"
	"github.com/panunburn/kv/rpc/client"
	"github.com/panunburn/kv/rpc/common"
	"path/filepath"
)

// Files kept in the data directory
const (
	StoreFile  = "kv.store"
	IDFile     = "id.store"
	JournalDir = "paxos"
)

// --------------------------------------------------------------------------
// Coordinator
// --------------------------------------------------------------------------

// startCoordinator restores the persisted store and log, and serves the
// coordinator and gateway services
func (s *rpcServer) startCoordinator() error {
	// requests arriving before the services are registered are rejected
	if err := s.listen(); err != nil {
		return err
	}

	self, err := s.advertiseAddress()
	if err != nil {
		if s.config.Advertise != "" {
			return err
		}
		// only replicas are dialed by address, a coordinator on a unix
		// socket serves clients without replicas
		Logger.Warningf("replicas cannot join this coordinator: %v", err)
		self = protocol.Address{Host: s.config.Transport.Endpoint}
	}
	s.self = self

	idSource, err := s.idSource()
	if err != nil {
		return err
	}
	s.onStop("id source", idSource.Close)

	storePath := filepath.Join(s.config.DataDir, StoreFile)
	kv, err := lstore.Load(storePath)
	if err != nil {
		return err
	}

	journal, err := paxos.OpenWALJournal(filepath.Join(s.config.DataDir, JournalDir), encodeTransaction, decodeTransaction)
	if err != nil {
		return err
	}
	s.onStop("journal", journal.Close)

	log := paxos.NewLog[protocol.Transaction]()
	replayed, err := paxos.ReplayInto(journal, log)
	if err != nil {
		return err
	}
	Logger.Infof("restored %d entries and %d learned rounds", kv.Len(), replayed)

	// the store is saved after the coordinator drained its background work
	s.onStop("store", func() error {
		if err := kv.Save(storePath); err != nil {
			return err
		}
		Logger.Infof("saved %d entries to %s", kv.Len(), storePath)
		return nil
	})

	state := replication.NewState(kv, log)
	rs := readset.New()
	// the acceptor and the proposer share the injector
	cfg := s.config.CoordinatorConfig()
	engine := paxos.NewEngine(self.String(), log, cfg.Failures, journal)
	coordinator := replication.NewCoordinator(self, state, rs, engine, idSource, cfg)
	s.onStop("coordinator", coordinator.Shutdown)

	s.services.Store(common.ServiceCoordinator, NewCoordinatorServerAdapter(coordinator, s.dialer(), func() {
		if err := s.Stop(); err != nil {
			Logger.Errorf("stop after shutdown request: %v", err)
		}
	}))
	s.services.Store(common.ServiceGateway, NewGatewayServerAdapter(replication.NewGateway(coordinator, kv, rs)))

	Logger.Infof("coordinator %s ready", self)
	return nil
}

// idSource connects the configured id server or opens the local one
func (s *rpcServer) idSource() (ids.IIdSource, error) {
	if s.config.IDEndpoint != "" {
		source, err := client.NewRemoteIdSource(s.config.PeerClientConfig(s.config.IDEndpoint), s.clientTransport, s.serializer)
		if err != nil {
			return nil, fmt.Errorf("failed to reach id server %s: %w", s.config.IDEndpoint, err)
		}
		return source, nil
	}
	return ids.NewPersistentSource(filepath.Join(s.config.DataDir, IDFile))
}

// --------------------------------------------------------------------------
// Replica
// --------------------------------------------------------------------------

// startReplica joins the cluster of the configured coordinator. The node
// stops when the coordinator asks it to, and leaves the cluster when it is
// stopped locally.
func (s *rpcServer) startReplica() error {
	if s.config.CoordinatorEndpoint == "" {
		return fmt.Errorf("a replica needs a coordinator endpoint")
	}

	// the transport is bound first so the advertised address carries the
	// actual port. requests are refused until the services are in place
	if err := s.listen(); err != nil {
		return err
	}
	self, err := s.advertiseAddress()
	if err != nil {
		return fmt.Errorf("replicas must listen on host:port: %w", err)
	}
	s.self = self

	coordinator, err := client.NewRemoteCoordinator(s.config.PeerClientConfig(s.config.CoordinatorEndpoint), s.clientTransport, s.serializer)
	if err != nil {
		return fmt.Errorf("failed to reach coordinator %s: %w", s.config.CoordinatorEndpoint, err)
	}
	s.onStop("coordinator client", coordinator.Close)

	snapshot, err := coordinator.Connect(self)
	if err != nil {
		return fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	// leaving the cluster on a local stop also abandons a partial join. a
	// replica stopped by the coordinator does not disconnect
	var replica *replication.Replica
	s.onStop("membership", func() error {
		if replica != nil && replica.Stopped() {
			return nil
		}
		if err := coordinator.Disconnect(self); err != nil {
			return err
		}
		Logger.Infof("left the cluster")
		return nil
	})

	state := snapshot.Restore(lstore.NewLocalStore(), paxos.NewLog[protocol.Transaction](), self, s.dialer())
	s.onStop("peers", func() error {
		for _, addr := range state.Members() {
			state.Drop(addr)
		}
		return nil
	})
	Logger.Infof("received %d entries and %d member(s) from the coordinator", state.Store.Len(), len(state.Directory))

	rs := readset.New()
	engine := paxos.NewEngine(self.String(), state.Log, paxos.NewRandomFailures(s.config.PaxosFailureRate), nil)
	replica = replication.NewReplica(state, rs, engine, replication.ShutdownListener{
		Stop: func() {
			if err := s.Stop(); err != nil {
				Logger.Errorf("stop after shutdown request: %v", err)
			}
		},
	})

	s.services.Store(common.ServiceReplica, NewReplicaServerAdapter(replica, s.dialer()))
	s.services.Store(common.ServiceGateway, NewGatewayServerAdapter(replication.NewGateway(coordinator, state.Store, rs)))

	if err := coordinator.Register(self, nil); err != nil {
		return fmt.Errorf("failed to register with coordinator: %w", err)
	}
	Logger.Infof("replica %s joined the cluster of %s", self, s.config.CoordinatorEndpoint)
	return nil
}

// --------------------------------------------------------------------------
// Id server
// --------------------------------------------------------------------------

// startIDSource serves the persistent id sequence
func (s *rpcServer) startIDSource() error {
	source, err := ids.NewPersistentSource(filepath.Join(s.config.DataDir, IDFile))
	if err != nil {
		return err
	}
	s.onStop("id source", source.Close)

	s.services.Store(common.ServiceIDSource, NewIdServerAdapter(source))

	if err := s.listen(); err != nil {
		return err
	}
	Logger.Infof("id server ready")
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func encodeTransaction(tx protocol.Transaction) ([]byte, error) {
	return tx.MarshalBinary()
}

func decodeTransaction(b []byte) (protocol.Transaction, error) {
	var tx protocol.Transaction
	err := tx.UnmarshalBinary(b)
	return tx, err
}
