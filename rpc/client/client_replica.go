package client

import (
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
)

// NewRemoteReplica creates a handle for the replica service at addr. The
// endpoints of config are replaced by addr. The handle connects on first use,
// so a peer that cannot be reached fails its first call with
// replication.ErrUnreachable. The returned handle implements io.Closer.
func NewRemoteReplica(
	addr protocol.Address,
	config common.ClientConfig,
	newTransport TransportFactory,
	serializer serializer.IRPCSerializer,
) (replication.IReplica, error) {
	config.Transport.Endpoints = []string{addr.String()}

	adapter, err := newAdapter(common.ServiceReplica, config, newTransport, serializer, false)
	if err != nil {
		return nil, err
	}
	return &rpcReplica{remoteAcceptor{adapter}}, nil
}

// NewDialer returns a dialer connecting remote replica handles with config
// as template
func NewDialer(config common.ClientConfig, newTransport TransportFactory, serializer serializer.IRPCSerializer) replication.Dialer {
	return func(addr protocol.Address) (replication.IReplica, error) {
		return NewRemoteReplica(addr, config, newTransport, serializer)
	}
}

type rpcReplica struct {
	remoteAcceptor
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replication.IReplica)
// --------------------------------------------------------------------------

// Add only sends the address, the replica dials the new member itself
func (r *rpcReplica) Add(addr protocol.Address, _ replication.IReplica) error {
	_, err := r.invoke(common.NewAddRequest(addr))
	return err
}

func (r *rpcReplica) Remove(addr protocol.Address) error {
	_, err := r.invoke(common.NewRemoveRequest(addr))
	return err
}

func (r *rpcReplica) Validate(tx protocol.Transaction) (bool, error) {
	resp, err := r.invoke(common.NewTxRequest(common.MsgTValidate, tx))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (r *rpcReplica) Commit(tx protocol.Transaction) error {
	_, err := r.invoke(common.NewTxRequest(common.MsgTCommit, tx))
	return err
}

func (r *rpcReplica) Abort(tx protocol.Transaction) error {
	_, err := r.invoke(common.NewTxRequest(common.MsgTAbort, tx))
	return err
}

func (r *rpcReplica) Shutdown() error {
	_, err := r.invoke(common.NewShutdownRequest())
	return err
}
