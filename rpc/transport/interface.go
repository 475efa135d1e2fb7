package transport

import (
	"github.com/panunburn/kv/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes the id of the addressed service and a request and returns a response
type ServerHandleFunc func(serviceID uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the endpoint of the config and serves requests in the
	// background. It returns once the endpoint is bound.
	Listen(config common.ServerConfig) error
	// Addr returns the bound address, empty before Listen
	Addr() string
	// Close stops accepting requests and closes open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(serviceID uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
