package serve

import (
	"fmt"
	cmdUtil "github.com/panunburn/kv/cmd/util"
	"github.com/panunburn/kv/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a coordinator or replica node",
		Long: `Start a cluster node with the specified configuration. The configuration can be set via command line flags or environment variables.
The format of the environment variables is KV_<flag> (e.g. KV_PAXOS_TIMEOUT=2000)`,
		PreRunE: processConfig,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runNode(*serveCmdConfig)
		},
	}
)

func init() {
	cmdUtil.SetupServerFlags(ServeCmd)

	key := "role"
	ServeCmd.PersistentFlags().String(key, string(common.RoleCoordinator), cmdUtil.WrapString("Role of this node (coordinator, replica)"))

	key = "advertise"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("host:port peers use to reach this node (defaults to the listen endpoint)"))

	key = "coordinator"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(replica) Endpoint of the coordinator to join"))

	key = "id-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(coordinator) Endpoint of a remote id server, empty uses a local id source in the data dir"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 3, cmdUtil.WrapString("Timeout in seconds for calls to other nodes"))

	key = "paxos-threads"
	ServeCmd.PersistentFlags().Int(key, 4, cmdUtil.WrapString("(coordinator) Background workers appending committed commands to the log"))

	key = "paxos-timeout"
	ServeCmd.PersistentFlags().Int64(key, 5000, cmdUtil.WrapString("(coordinator) Time in milliseconds a log append may take before it is abandoned"))

	key = "paxos-failure-rate"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Percentage of paxos messages to fail on purpose, 0 disables failure injection"))

	key = "drain-timeout"
	ServeCmd.PersistentFlags().Int64(key, 5000, cmdUtil.WrapString("(coordinator) Time in milliseconds shutdown waits for pending log appends"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	role := common.NodeRole(viper.GetString("role"))
	switch role {
	case common.RoleCoordinator:
	case common.RoleReplica:
		if viper.GetString("coordinator") == "" {
			return fmt.Errorf("a replica needs --coordinator")
		}
	default:
		return fmt.Errorf("invalid role %s (expected coordinator or replica)", role)
	}

	rate := viper.GetInt("paxos-failure-rate")
	if rate < 0 || rate > 100 {
		return fmt.Errorf("paxos-failure-rate must be between 0 and 100, got %d", rate)
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Role = role
	serveCmdConfig.Advertise = viper.GetString("advertise")
	serveCmdConfig.CoordinatorEndpoint = viper.GetString("coordinator")
	serveCmdConfig.IDEndpoint = viper.GetString("id-endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.PaxosThreads = viper.GetInt("paxos-threads")
	serveCmdConfig.PaxosTimeoutMillis = viper.GetInt64("paxos-timeout")
	serveCmdConfig.PaxosFailureRate = rate
	serveCmdConfig.DrainTimeoutMillis = viper.GetInt64("drain-timeout")
	readNodeConfig(serveCmdConfig)

	return nil
}

// readNodeConfig fills the fields every role shares
func readNodeConfig(config *common.ServerConfig) {
	config.DataDir = viper.GetString("data-dir")
	config.MetricsEndpoint = viper.GetString("metrics-endpoint")
	config.LogLevel = viper.GetString("log-level")
	config.Transport = cmdUtil.GetServerTransportConfig()
}
