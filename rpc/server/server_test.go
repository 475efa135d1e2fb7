package server

import (
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/rpc/client"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"github.com/panunburn/kv/rpc/transport/tcp"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"testing"
	"time"
)

func nodeConfig(t *testing.T, role common.NodeRole) common.ServerConfig {
	return common.ServerConfig{
		Role:               role,
		DataDir:            t.TempDir(),
		TimeoutSecond:      2,
		PaxosThreads:       2,
		PaxosTimeoutMillis: 2000,
		DrainTimeoutMillis: 2000,
		LogLevel:           "warn",
		Transport:          common.ServerTransportConfig{Endpoint: "127.0.0.1:0"},
	}
}

func startNode(t *testing.T, config common.ServerConfig) *rpcServer {
	t.Helper()
	s := NewRPCServer(config, tcp.NewTCPDefaultServerTransport(), serializer.NewMsgpackSerializer(), tcp.NewTCPClientTransport)
	require.NoError(t, s.Serve())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func startReplica(t *testing.T, coordinator *rpcServer) *rpcServer {
	t.Helper()
	config := nodeConfig(t, common.RoleReplica)
	config.CoordinatorEndpoint = coordinator.Addr()
	return startNode(t, config)
}

func clientConfig(endpoint string) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 2,
		Transport:     common.ClientTransportConfig{Endpoints: []string{endpoint}},
	}
}

func gatewayOf(t *testing.T, node *rpcServer) client.IGatewayClient {
	t.Helper()
	gw, err := client.NewRemoteGateway(clientConfig(node.Addr()), tcp.NewTCPClientTransport, serializer.NewMsgpackSerializer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func waitStopped(t *testing.T, node *rpcServer) {
	t.Helper()
	select {
	case <-node.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("node %s did not stop", node.Addr())
	}
}

func TestClusterOverTCP(t *testing.T) {
	coordinator := startNode(t, nodeConfig(t, common.RoleCoordinator))
	r1 := startReplica(t, coordinator)
	r2 := startReplica(t, coordinator)

	g1, g2, g0 := gatewayOf(t, r1), gatewayOf(t, r2), gatewayOf(t, coordinator)

	t.Run("PutIsVisibleEverywhere", func(t *testing.T) {
		_, err := g1.Process(protocol.Put("a", "b"))
		require.NoError(t, err)

		for _, gw := range []client.IGatewayClient{g0, g1, g2} {
			res, err := gw.Process(protocol.Get("a"))
			require.NoError(t, err)
			require.Equal(t, protocol.Result{Value: "b", Found: true}, res)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		res, err := g2.Process(protocol.Delete("a"))
		require.NoError(t, err)
		require.Equal(t, protocol.Result{Value: "b", Found: true}, res)

		res, err = g1.Process(protocol.Get("a"))
		require.NoError(t, err)
		require.False(t, res.Found)
	})

	t.Run("Print", func(t *testing.T) {
		_, err := g0.Process(protocol.Print())
		require.NoError(t, err)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		_, err := g1.Process(protocol.Command{Kind: protocol.KindPut})
		require.ErrorIs(t, err, protocol.ErrInvalidRequest)
	})

	t.Run("NewReplicaReceivesStore", func(t *testing.T) {
		_, err := g0.Process(protocol.Put("late", "joiner"))
		require.NoError(t, err)

		r3 := startReplica(t, coordinator)
		res, err := gatewayOf(t, r3).Process(protocol.Get("late"))
		require.NoError(t, err)
		require.Equal(t, "joiner", res.Value)
	})

	t.Run("StoppedReplicaLeaves", func(t *testing.T) {
		require.NoError(t, r2.Stop())
		waitStopped(t, r2)

		_, err := g1.Process(protocol.Put("c", "d"))
		require.NoError(t, err)
	})

	t.Run("ShutdownStopsEveryNode", func(t *testing.T) {
		c, err := client.NewRemoteCoordinator(clientConfig(coordinator.Addr()), tcp.NewTCPClientTransport, serializer.NewMsgpackSerializer())
		require.NoError(t, err)
		defer c.Close()

		require.NoError(t, c.Shutdown())
		waitStopped(t, coordinator)
		waitStopped(t, r1)
	})
}

func TestCoordinatorPersistsStore(t *testing.T) {
	config := nodeConfig(t, common.RoleCoordinator)

	first := startNode(t, config)
	_, err := gatewayOf(t, first).Process(protocol.Put("k", "v"))
	require.NoError(t, err)
	require.NoError(t, first.Stop())

	second := startNode(t, config)
	res, err := gatewayOf(t, second).Process(protocol.Get("k"))
	require.NoError(t, err)
	require.Equal(t, protocol.Result{Value: "v", Found: true}, res)
}

func TestCoordinatorWithIdServer(t *testing.T) {
	idServer := startNode(t, nodeConfig(t, common.RoleIDSource))

	source, err := client.NewRemoteIdSource(clientConfig(idServer.Addr()), tcp.NewTCPClientTransport, serializer.NewMsgpackSerializer())
	require.NoError(t, err)
	first, err := source.Next()
	require.NoError(t, err)
	second, err := source.Next()
	require.NoError(t, err)
	require.Greater(t, second, first)
	require.NoError(t, source.Close())

	config := nodeConfig(t, common.RoleCoordinator)
	config.IDEndpoint = idServer.Addr()
	coordinator := startNode(t, config)
	startReplica(t, coordinator)

	_, err = gatewayOf(t, coordinator).Process(protocol.Put("x", "y"))
	require.NoError(t, err)
}

func TestReplicaWithoutCoordinator(t *testing.T) {
	config := nodeConfig(t, common.RoleReplica)
	config.CoordinatorEndpoint = "127.0.0.1:1"

	s := NewRPCServer(config, tcp.NewTCPDefaultServerTransport(), serializer.NewMsgpackSerializer(), tcp.NewTCPClientTransport)
	require.Error(t, s.Serve())
	waitStopped(t, s)
}

func TestInvalidRole(t *testing.T) {
	s := NewRPCServer(nodeConfig(t, "observer"), tcp.NewTCPDefaultServerTransport(), serializer.NewMsgpackSerializer(), tcp.NewTCPClientTransport)
	require.Error(t, s.Serve())
}

func TestMetricsEndpoint(t *testing.T) {
	config := nodeConfig(t, common.RoleCoordinator)
	config.MetricsEndpoint = "127.0.0.1:0"
	node := startNode(t, config)

	_, err := gatewayOf(t, node).Process(protocol.Put("m", "n"))
	require.NoError(t, err)

	get := func(path string) string {
		resp, err := http.Get("http://" + node.metrics.Addr() + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	require.Equal(t, "OK", get("/health"))
	require.Contains(t, get("/metrics/rpc"), `kv_rpc_requests_total{service="gateway",type="process"}`)
	require.Contains(t, get("/metrics"), "kv_replication_broadcasts_total")
}

func TestUnknownServiceIsRejected(t *testing.T) {
	idServer := startNode(t, nodeConfig(t, common.RoleIDSource))

	// the id server does not serve the gateway
	_, err := gatewayOf(t, idServer).Process(protocol.Get("a"))
	require.ErrorIs(t, err, protocol.ErrInvalidRequest)
}

func TestAcceptorFailureRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		wantErr error
	}{
		{name: "Disabled", rate: 0},
		{name: "AlwaysFails", rate: 100, wantErr: paxos.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := nodeConfig(t, common.RoleCoordinator)
			config.PaxosFailureRate = tt.rate
			config.PaxosTimeoutMillis = 200
			coordinator := startNode(t, config)

			replicaConfig := nodeConfig(t, common.RoleReplica)
			replicaConfig.CoordinatorEndpoint = coordinator.Addr()
			replicaConfig.PaxosFailureRate = tt.rate
			replica := startNode(t, replicaConfig)

			// client results do not wait for the log, so writes succeed either way
			_, err := gatewayOf(t, replica).Process(protocol.Put("a", "b"))
			require.NoError(t, err)

			c, err := client.NewRemoteCoordinator(clientConfig(coordinator.Addr()), tcp.NewTCPClientTransport, serializer.NewMsgpackSerializer())
			require.NoError(t, err)
			defer c.Close()

			addr, err := protocol.ParseAddress(replica.Addr())
			require.NoError(t, err)
			r, err := client.NewRemoteReplica(addr, clientConfig(replica.Addr()), tcp.NewTCPClientTransport, serializer.NewMsgpackSerializer())
			require.NoError(t, err)
			defer r.(io.Closer).Close()

			for name, acceptor := range map[string]paxos.IAcceptor[protocol.Transaction]{"coordinator": c, "replica": r} {
				// a round far ahead of the background appends
				_, err := acceptor.Prepare(1000, 1)
				if tt.wantErr == nil {
					require.NoError(t, err, name)
					continue
				}
				require.ErrorIs(t, err, tt.wantErr, name)
				require.True(t, paxos.IsNoResponse(err), name)
			}
		})
	}
}
