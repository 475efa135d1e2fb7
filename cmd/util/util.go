package util

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/panunburn/kv/rpc/client"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"github.com/panunburn/kv/rpc/transport"
	"github.com/panunburn/kv/rpc/transport/http"
	"github.com/panunburn/kv/rpc/transport/tcp"
	"github.com/panunburn/kv/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of a cluster node. Several endpoints can be given as a comma-separated list, the repl offers them when a node is unreachable"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (tcp and unix)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	setupSocketFlags(cmd)
}

// SetupServerFlags adds the transport flags shared by every node role
func SetupServerFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, ":8080", WrapString("The address on which the node will listen (e.g. :8080, localhost:8080, /tmp/kv.sock)"))

	key = "data-dir"
	cmd.PersistentFlags().String(key, ".", WrapString("Directory for kv.store, id.store and the paxos journal"))

	key = "metrics-endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("HTTP endpoint serving /metrics, /metrics/rpc and /health (empty disables it)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "transport-workers-per-conn"
	cmd.PersistentFlags().Int(key, 0, WrapString("Concurrent requests handled per connection (tcp and unix, 0 selects the default)"))

	key = "transport-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the pooled frame buffers (in KB, tcp and unix, 0 selects the default)"))

	setupSocketFlags(cmd)
}

func setupSocketFlags(cmd *cobra.Command) {
	key := "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time for the transport (in seconds, only for tcp)"))
}

// InitConfig loads .env files and binds KV_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("kv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

func socketConf() common.SocketConf {
	return common.SocketConf{
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
	}
}

func tcpConf() common.TCPConf {
	return common.TCPConf{
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
	}
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              SplitList(viper.GetString("transport-endpoints")),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf:             socketConf(),
			TCPConf:                tcpConf(),
		},
	}
}

// GetServerTransportConfig reads the listening side of the transport from viper
func GetServerTransportConfig() common.ServerTransportConfig {
	return common.ServerTransportConfig{
		Endpoint:       viper.GetString("endpoint"),
		WorkersPerConn: viper.GetInt("transport-workers-per-conn"),
		BufferSize:     viper.GetInt("transport-buffer") * 1024,
		SocketConf:     socketConf(),
		TCPConf:        tcpConf(),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetClientTransport returns a factory for client transports based on configuration
func GetClientTransport() (client.TransportFactory, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport, nil
	case "tcp":
		return tcp.NewTCPClientTransport, nil
	case "unix":
		return unix.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the listening transport based on configuration
func GetServerTransport(config common.ServerTransportConfig) (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(config.BufferSize, config.WorkersPerConn), nil
	case "unix":
		return unix.NewUnixServerTransport(config.BufferSize, config.WorkersPerConn), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// SplitList splits a comma-separated flag value, dropping empty entries
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
