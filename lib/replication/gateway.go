package replication

import (
	"fmt"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/readset"
	"github.com/panunburn/kv/lib/store"
)

type gateway struct {
	coordinator ICoordinator
	store       store.IStore
	readset     *readset.ReadSet
}

// NewGateway creates the client entry point of a node. Reads are served from
// s while marked in rs, writes go to coordinator.
func NewGateway(coordinator ICoordinator, s store.IStore, rs *readset.ReadSet) IGateway {
	return &gateway{
		coordinator: coordinator,
		store:       s,
		readset:     rs,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replication.IGateway)
// --------------------------------------------------------------------------

func (g *gateway) Process(cmd protocol.Command) (protocol.Result, error) {
	if err := cmd.Validate(); err != nil {
		return protocol.Result{}, err
	}

	switch cmd.Kind {
	case protocol.KindGet:
		g.readset.Mark(cmd.Key)
		defer g.readset.Unmark(cmd.Key)
		v, ok := g.store.Get(cmd.Key)
		return protocol.Result{Value: v, Found: ok}, nil
	case protocol.KindPut, protocol.KindDelete, protocol.KindPrint:
		return g.coordinator.Broadcast(cmd)
	default:
		return protocol.Result{}, fmt.Errorf("%w: unsupported command %s", protocol.ErrInvalidRequest, cmd.Kind)
	}
}
