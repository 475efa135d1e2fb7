// Package server runs a cluster node behind an RPC transport.
//
// A node takes one of three roles, chosen by common.ServerConfig.Role:
//
//   - coordinator: owns the cluster membership, the authoritative store and
//     the paxos journal. Serves the coordinator and gateway services.
//   - replica: joins a coordinator, receives its snapshot and takes part in
//     every broadcast. Serves the replica and gateway services.
//   - id: hands out unique transaction ids to coordinators that do not keep
//     their own counter. Serves the id service.
//
// Requests arrive as serialized common.Message values tagged with a service
// id. Each service is backed by an IRPCServerAdapter that decodes the message,
// calls into lib/replication and encodes the reply. Errors travel as a
// common.ErrCode so clients can match them with errors.Is.
//
// Usage:
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewMsgpackSerializer(),
//	  tcp.NewTCPClientTransport,
//	)
//	if err := s.Serve(); err != nil {
//	  log.Fatal(err)
//	}
//	<-s.Done()
//
// Serve returns once the node is listening and has joined the cluster. Stop
// releases everything Serve set up in reverse order; a replica also stops on
// its own when the coordinator shuts the cluster down. Done is closed after
// either.
//
// When MetricsEndpoint is set the node serves /metrics (prometheus),
// /metrics/rpc (per service request counters) and /health.
package server
