package serve

import (
	"context"
	"fmt"
	cmdUtil "github.com/panunburn/kv/cmd/util"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/server"
	"os"
	"os/signal"
	"syscall"
)

// runNode starts a node and blocks until it stops, either on a signal or
// because the cluster was shut down
func runNode(config common.ServerConfig) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport(config.Transport)
	if err != nil {
		return err
	}

	dial, err := cmdUtil.GetClientTransport()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	node := server.NewRPCServer(config, t, s, dial)
	if err := node.Serve(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		if err := node.Stop(); err != nil {
			return fmt.Errorf("node stopped with errors: %w", err)
		}
	case <-node.Done():
		server.Logger.Infof("node stopped by the cluster")
	}
	return nil
}
