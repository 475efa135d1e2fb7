// Package client implements handles that reach the services of remote nodes
// over rpc. Every handle implements the interface of the service it talks to,
// so the replication code does not know whether a peer is local or remote.
//
// Key Components:
//
//   - NewRemoteReplica / NewDialer: replication.IReplica handles used by the
//     coordinator and by replicas to reach their peers.
//
//   - NewRemoteCoordinator: replication.ICoordinator handle used by replicas
//     to join and leave, and by the client cli to shut the cluster down.
//
//   - NewRemoteGateway: replication.IGateway handle used by the client cli.
//
//   - NewRemoteIdSource: ids.IIdSource handle for a coordinator using an id
//     server.
//
// A request that cannot be delivered fails with replication.ErrUnreachable.
// Errors returned by the remote side keep their sentinel, so errors.Is works
// on both sides of the network.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		TimeoutSecond: 3,
//		Transport: common.ClientTransportConfig{
//			Endpoints: []string{"localhost:8080"},
//		},
//	}
//	gateway, err := client.NewRemoteGateway(config, tcp.NewTCPClientTransport, serializer.NewMsgpackSerializer())
//	result, err := gateway.Process(protocol.Put("key", "value"))
package client
