// Package tcp implements the tcp socket transport of the rpc system. It
// provides the tcp connectors for the base package, which carries the
// framing, connection pooling and request correlation.
//
// Both sides apply TCPConf and SocketConf (no delay, keep alive, linger and
// buffer sizes) to their connections.
//
// The default server buffer size is 512 KB.
package tcp
