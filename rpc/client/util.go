package client

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"github.com/panunburn/kv/rpc/transport"
	"sync"
)

var (
	Logger = logger.GetLogger("client")
)

// TransportFactory creates a new, unconnected client transport
type TransportFactory func() transport.IRPCClientTransport

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by all remote handles with composition pattern. The transport is
// connected on first use and reconnected after Close
type rpcClientAdapter struct {
	serviceID    uint64
	config       common.ClientConfig
	newTransport TransportFactory
	serializer   serializer.IRPCSerializer

	mu        sync.Mutex
	transport transport.IRPCClientTransport // nil while not connected
}

// newAdapter creates an adapter for serviceID, it connects right away if eager is set
func newAdapter(serviceID uint64, config common.ClientConfig, newTransport TransportFactory, serializer serializer.IRPCSerializer, eager bool) (*rpcClientAdapter, error) {
	a := &rpcClientAdapter{
		serviceID:    serviceID,
		config:       config,
		newTransport: newTransport,
		serializer:   serializer,
	}
	if eager {
		if _, err := a.connect(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// connect returns the connected transport of the adapter
func (a *rpcClientAdapter) connect() (transport.IRPCClientTransport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.transport != nil {
		return a.transport, nil
	}
	t := a.newTransport()
	if err := t.Connect(a.config); err != nil {
		return nil, fmt.Errorf("%w: %v", replication.ErrUnreachable, err)
	}
	a.transport = t
	return t, nil
}

// invoke sends req to the service of the adapter
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	t, err := a.connect()
	if err != nil {
		return nil, err
	}
	return invokeRPCRequest(a.serviceID, req, t, a.serializer)
}

// Close closes the transport of the adapter
func (a *rpcClientAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.transport == nil {
		return nil
	}
	err := a.transport.Close()
	a.transport = nil
	return err
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a service ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// A failed send is reported as replication.ErrUnreachable, an error response is
// returned as common.RemoteError matching the sentinel of the remote error
func invokeRPCRequest(serviceID uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := transport.Send(serviceID, reqBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", replication.ErrUnreachable, err)
	}

	resp := &common.Message{}
	if err = serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC %s - invalid response: %v", common.ServiceName(serviceID), err)
	}

	// Check if the response is an error response
	if err := resp.Error(); err != nil {
		return nil, err
	}
	if resp.MsgType == common.MsgTError {
		return nil, fmt.Errorf("RPC %s - error response without message", common.ServiceName(serviceID))
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC %s - Unexpected message type: %s, expected %s", common.ServiceName(serviceID), resp.MsgType, req.MsgType)
	}

	return resp, nil
}
