package client

import (
	"fmt"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"io"
)

// ICoordinatorClient is a coordinator handle holding a connection
type ICoordinatorClient interface {
	replication.ICoordinator
	io.Closer
}

// NewRemoteCoordinator connects to the coordinator service at the endpoints of config
func NewRemoteCoordinator(
	config common.ClientConfig,
	newTransport TransportFactory,
	serializer serializer.IRPCSerializer,
) (ICoordinatorClient, error) {
	adapter, err := newAdapter(common.ServiceCoordinator, config, newTransport, serializer, true)
	if err != nil {
		return nil, err
	}
	return &rpcCoordinator{remoteAcceptor{adapter}}, nil
}

type rpcCoordinator struct {
	remoteAcceptor
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replication.ICoordinator)
// --------------------------------------------------------------------------

func (c *rpcCoordinator) Connect(addr protocol.Address) (replication.Snapshot, error) {
	resp, err := c.invoke(common.NewConnectRequest(addr))
	if err != nil {
		return replication.Snapshot{}, err
	}
	if resp.Snapshot == nil {
		return replication.Snapshot{}, fmt.Errorf("connect response carries no snapshot")
	}
	return *resp.Snapshot, nil
}

// Register only sends the address, the coordinator dials the replica itself
func (c *rpcCoordinator) Register(addr protocol.Address, _ replication.IReplica) error {
	_, err := c.invoke(common.NewRegisterRequest(addr))
	return err
}

func (c *rpcCoordinator) Disconnect(addr protocol.Address) error {
	_, err := c.invoke(common.NewDisconnectRequest(addr))
	return err
}

func (c *rpcCoordinator) Shutdown() error {
	_, err := c.invoke(common.NewShutdownRequest())
	return err
}

func (c *rpcCoordinator) Broadcast(cmd protocol.Command) (protocol.Result, error) {
	resp, err := c.invoke(common.NewBroadcastRequest(cmd))
	if err != nil {
		return protocol.Result{}, err
	}
	return resp.Result(), nil
}
