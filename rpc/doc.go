// Package rpc carries the replication protocol between cluster nodes and
// clients.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol, error codes, configuration structures and
//     logging shared by both sides.
//
//   - transport: framed network transports with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message encoding (msgpack, JSON, GOB).
//
//   - client: remote handles implementing the replication interfaces
//     (coordinator, replica, gateway, id source), so a node talks to its
//     peers as if they were local.
//
//   - server: the node itself, dispatching requests per service to adapters
//     around lib/replication.
package rpc
