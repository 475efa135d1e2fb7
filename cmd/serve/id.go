package serve

import (
	cmdUtil "github.com/panunburn/kv/cmd/util"
	"github.com/panunburn/kv/rpc/common"
	"github.com/spf13/cobra"
)

var (
	idCmdConfig = &common.ServerConfig{Role: common.RoleIDSource}

	// IdCmd starts a standalone id server
	IdCmd = &cobra.Command{
		Use:   "id",
		Short: "Start an id server",
		Long: `Start a server handing out unique transaction ids to coordinators started with --id-endpoint.
The last issued id is kept in <data-dir>/id.store, so ids are never reissued after a restart.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmdUtil.BindCommandFlags(cmd); err != nil {
				return err
			}
			readNodeConfig(idCmdConfig)
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runNode(*idCmdConfig)
		},
	}
)

func init() {
	cmdUtil.SetupServerFlags(IdCmd)
}
