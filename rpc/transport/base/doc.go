// Package base provides the protocol independent part of the stream
// transports (tcp, unix). Protocol specific behavior is injected with
// connectors.
//
// Frames carry a service id, a request id and the payload length ahead of
// the payload. The request id correlates responses with requests, so a
// single connection carries many requests at once.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: protocol specific dialing,
//     listening and connection settings.
//
//   - clientTransport: manages one or more connections per endpoint with
//     round-robin selection and retries with exponential backoff. A broken
//     connection fails its pending requests right away and is reconnected.
//
//   - serverTransport: accepts connections in the background and runs up to
//     maxWorkersPerConn handlers per connection. Close stops the listener and
//     drops open connections.
//
// Buffers for incoming frames are pooled with a sync.Pool.
package base
