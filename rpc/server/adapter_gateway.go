package server

import (
	"github.com/panunburn/kv/lib/ids"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
)

// NewGatewayServerAdapter creates the adapter of the client facing gateway service
func NewGatewayServerAdapter(gateway replication.IGateway) IRPCServerAdapter {
	return &gatewayServerAdapterImpl{gateway: gateway}
}

type gatewayServerAdapterImpl struct {
	gateway replication.IGateway
}

func (a *gatewayServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if req.MsgType != common.MsgTProcess {
		return unsupported("gateway", req)
	}
	if req.Command == nil {
		return invalidRequest(req, "missing command")
	}
	result, err := a.gateway.Process(*req.Command)
	return common.NewResultResponse(common.MsgTProcess, result, err)
}

// NewIdServerAdapter creates the adapter of the id service
func NewIdServerAdapter(source ids.IIdSource) IRPCServerAdapter {
	return &idServerAdapterImpl{source: source}
}

type idServerAdapterImpl struct {
	source ids.IIdSource
}

func (a *idServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if req.MsgType != common.MsgTNextID {
		return unsupported("ids", req)
	}
	id, err := a.source.Next()
	return common.NewNextIDResponse(id, err)
}
