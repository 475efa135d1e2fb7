package client

import (
	"fmt"
	"github.com/panunburn/kv/cmd/util"
	"github.com/panunburn/kv/rpc/client"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"github.com/spf13/cobra"
)

var (
	clientConfig  *common.ClientConfig
	rpcSerializer serializer.IRPCSerializer
	newTransport  client.TransportFactory

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:               "client",
		Short:             "Send requests to a running cluster",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Add common RPC flags to the client command
	util.SetupRPCClientFlags(ClientCommands)

	// Add subcommands
	ClientCommands.AddCommand(getCmd)
	ClientCommands.AddCommand(putCmd)
	ClientCommands.AddCommand(delCmd)
	ClientCommands.AddCommand(printCmd)
	ClientCommands.AddCommand(shutdownCmd)
	ClientCommands.AddCommand(replCmd)
	ClientCommands.AddCommand(perfCmd)
}

// setupClient reads the client configuration, the connections are opened by the subcommands
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()
	if len(clientConfig.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoint given")
	}

	var err error
	if rpcSerializer, err = util.GetSerializer(); err != nil {
		return err
	}
	newTransport, err = util.GetClientTransport()
	return err
}

// connectGateway opens a gateway client to the given endpoints
func connectGateway(endpoints ...string) (client.IGatewayClient, error) {
	config := *clientConfig
	config.Transport.Endpoints = endpoints
	return client.NewRemoteGateway(config, newTransport, rpcSerializer)
}
