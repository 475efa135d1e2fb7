package server

import (
	"github.com/panunburn/kv/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// An adapter serves one service of a node. It decodes the request into a
// call of the service and encodes the outcome as response
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// If an error occurs, it should be set in the response
	Handle(req *common.Message) (resp *common.Message)
}
