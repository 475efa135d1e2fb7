package client

import (
	"fmt"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(cmd, protocol.Get(args[0]))
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(cmd, protocol.Put(args[0], args[1]))
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(cmd, protocol.Delete(args[0]))
		},
	}
	printCmd = &cobra.Command{
		Use:   "print",
		Short: "Makes every node log its replicated state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(cmd, protocol.Print())
		},
	}
	shutdownCmd = &cobra.Command{
		Use:   "shutdown",
		Short: "Shuts down the whole cluster (the endpoint must be the coordinator)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := client.NewRemoteCoordinator(*clientConfig, newTransport, rpcSerializer)
			if err != nil {
				return err
			}
			defer coordinator.Close()

			if err := coordinator.Shutdown(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cluster is shutting down")
			return nil
		},
	}
)

// process sends a single command through the gateway of the configured endpoints
func process(cmd *cobra.Command, command protocol.Command) error {
	gateway, err := connectGateway(clientConfig.Transport.Endpoints...)
	if err != nil {
		return err
	}
	defer gateway.Close()

	res, err := gateway.Process(command)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Describe(command))
	return nil
}
