// Package serializer turns rpc messages into bytes and back. All nodes and
// clients of a cluster must use the same serializer.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - msgpackSerializerImpl: msgpack encoding (ugorji codec), the default.
//     Compact and fast, commands and transactions keep their binary encoding.
//
//   - jsonSerializerImpl: json encoding, human readable, useful for
//     debugging with the http transport.
//
//   - gobSerializerImpl: Go's gob encoding, larger payloads since every
//     message carries its type description.
//
// All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	s, err := serializer.New("msgpack")
//	data, err := s.Serialize(message)
//	// ... send data ...
//	var received common.Message
//	err = s.Deserialize(receivedData, &received)
package serializer
