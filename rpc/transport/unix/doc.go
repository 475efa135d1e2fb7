// Package unix implements the rpc transport on Unix domain sockets, for nodes
// and clients running on the same machine. It provides the connectors for the
// base package.
//
// The default server buffer size is 64 KB.
package unix
