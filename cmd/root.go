package cmd

import (
	"fmt"
	"github.com/panunburn/kv/cmd/client"
	"github.com/panunburn/kv/cmd/serve"
	"github.com/panunburn/kv/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kv",
		Short: "replicated key-value store",
		Long: fmt.Sprintf(`kv (v%s)

A replicated key-value store. Writes are committed on every node with a
two-phase commit driven by a coordinator and recorded in a Paxos log.
Nodes can join and leave at runtime.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kv v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(serve.IdCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "msgpack", util.WrapString("serializer to use (msgpack, json, gob), every node and client of a cluster must agree"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
