package server

import (
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
)

// NewCoordinatorServerAdapter creates the adapter of the coordinator service.
// dial creates handles for registering replicas, onShutdown is called after a
// remote shutdown request was served
func NewCoordinatorServerAdapter(coordinator replication.ICoordinator, dial replication.Dialer, onShutdown func()) IRPCServerAdapter {
	return &coordinatorServerAdapterImpl{
		coordinator: coordinator,
		dial:        dial,
		onShutdown:  onShutdown,
	}
}

type coordinatorServerAdapterImpl struct {
	coordinator replication.ICoordinator
	dial        replication.Dialer
	onShutdown  func()
}

func (a *coordinatorServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if resp, ok := handleAcceptor(a.coordinator, req); ok {
		return resp
	}

	switch req.MsgType {
	case common.MsgTConnect:
		addr, errResp := parseAddr(req)
		if errResp != nil {
			return errResp
		}
		snapshot, err := a.coordinator.Connect(addr)
		return common.NewConnectResponse(snapshot, err)
	case common.MsgTRegister:
		addr, errResp := parseAddr(req)
		if errResp != nil {
			return errResp
		}
		handle, err := a.dial(addr)
		if err != nil {
			return common.NewResponse(common.MsgTRegister, err)
		}
		return common.NewResponse(common.MsgTRegister, a.coordinator.Register(addr, handle))
	case common.MsgTDisconnect:
		addr, errResp := parseAddr(req)
		if errResp != nil {
			return errResp
		}
		return common.NewResponse(common.MsgTDisconnect, a.coordinator.Disconnect(addr))
	case common.MsgTShutdown:
		err := a.coordinator.Shutdown()
		if err == nil && a.onShutdown != nil {
			// the response is written before the node stops
			go a.onShutdown()
		}
		return common.NewResponse(common.MsgTShutdown, err)
	case common.MsgTBroadcast:
		if req.Command == nil {
			return invalidRequest(req, "missing command")
		}
		result, err := a.coordinator.Broadcast(*req.Command)
		return common.NewResultResponse(common.MsgTBroadcast, result, err)
	default:
		return unsupported("coordinator", req)
	}
}
