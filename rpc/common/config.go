package common

import (
	"fmt"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the buffer sizes applied to every connection.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific connection options.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerTransportConfig configures the listening side of a transport.
type ServerTransportConfig struct {
	SocketConf
	TCPConf

	// Endpoint the transport listens on (host:port or a socket path)
	Endpoint string
	// WorkersPerConn limits the concurrent requests handled per connection
	WorkersPerConn int
	// BufferSize is the size of the pooled frame buffers
	BufferSize int
}

// ClientTransportConfig configures the dialing side of a transport.
type ClientTransportConfig struct {
	SocketConf
	TCPConf

	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// NodeRole selects which services a node runs.
type NodeRole string

const (
	RoleCoordinator NodeRole = "coordinator"
	RoleReplica     NodeRole = "replica"
	RoleIDSource    NodeRole = "id"
)

// ServerConfig holds all configuration parameters of a node.
type ServerConfig struct {
	Role NodeRole

	// Advertise is the address peers use to reach this node. Defaults to the
	// transport endpoint, with the hostname filled in when the host is empty.
	Advertise string
	// CoordinatorEndpoint is required for replicas
	CoordinatorEndpoint string
	// IDEndpoint points the coordinator at a remote id server; empty means
	// ids are minted locally
	IDEndpoint string
	DataDir    string

	// peer call settings
	TimeoutSecond int64

	// consensus settings
	PaxosThreads       int
	PaxosTimeoutMillis int64
	PaxosFailureRate   int
	DrainTimeoutMillis int64

	// MetricsEndpoint enables the metrics http server if set
	MetricsEndpoint string

	// Logging configuration
	LogLevel string

	Transport ServerTransportConfig
}

// AdvertiseAddress resolves the address this node announces to its peers.
func (c *ServerConfig) AdvertiseAddress() (protocol.Address, error) {
	endpoint := c.Advertise
	if endpoint == "" {
		endpoint = c.Transport.Endpoint
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return protocol.Address{}, fmt.Errorf("invalid advertise address %q: %w", endpoint, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		if host, err = os.Hostname(); err != nil {
			return protocol.Address{}, fmt.Errorf("failed to resolve hostname: %w", err)
		}
	}
	return protocol.ParseAddress(net.JoinHostPort(host, port))
}

// CoordinatorConfig converts the consensus settings into a coordinator config.
func (c *ServerConfig) CoordinatorConfig() replication.Config {
	cfg := replication.DefaultConfig()
	if c.PaxosThreads > 0 {
		cfg.LogWorkers = c.PaxosThreads
	}
	if c.PaxosTimeoutMillis > 0 {
		cfg.LogTimeout = time.Duration(c.PaxosTimeoutMillis) * time.Millisecond
	}
	if c.DrainTimeoutMillis > 0 {
		cfg.DrainTimeout = time.Duration(c.DrainTimeoutMillis) * time.Millisecond
	}
	cfg.Failures = paxos.NewRandomFailures(c.PaxosFailureRate)
	return cfg
}

// PeerClientConfig creates the client config used to reach another node.
// Peer calls are not retried, a failed call marks the peer unresponsive.
func (c *ServerConfig) PeerClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		TimeoutSecond: int(c.TimeoutSecond),
		Transport: ClientTransportConfig{
			SocketConf:             c.Transport.SocketConf,
			TCPConf:                c.Transport.TCPConf,
			Endpoints:              []string{endpoint},
			RetryCount:             0,
			ConnectionsPerEndpoint: 1,
		},
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Node")
	addField("Role", string(c.Role))
	if c.Advertise != "" {
		addField("Advertise", c.Advertise)
	}
	if c.Role == RoleReplica {
		addField("Coordinator", c.CoordinatorEndpoint)
	}
	if c.Role == RoleCoordinator {
		if c.IDEndpoint != "" {
			addField("ID Server", c.IDEndpoint)
		} else {
			addField("ID Server", "local")
		}
	}
	addField("Data Directory", c.DataDir)

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))

	if c.Role == RoleCoordinator {
		addSection("Paxos")
		addField("Log Workers", strconv.Itoa(c.PaxosThreads))
		addField("Round Timeout", fmt.Sprintf("%d ms", c.PaxosTimeoutMillis))
		addField("Drain Timeout", fmt.Sprintf("%d ms", c.DrainTimeoutMillis))
		addField("Failure Rate", fmt.Sprintf("%d %%", c.PaxosFailureRate))
	}

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// Timeout returns the per request timeout.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
