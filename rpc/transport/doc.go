// Package transport defines the interfaces for RPC communication between the
// nodes of the cluster and its clients. All transport implementations (tcp,
// unix sockets, http) fulfill the same contract, so the rpc layer is
// protocol-agnostic.
//
// Key Components:
//
//   - IRPCClientTransport: client side, handles connections and sends
//     requests addressed to a service.
//
//   - IRPCServerTransport: server side, receives requests and passes them to
//     the registered handler together with the service id.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
package transport
