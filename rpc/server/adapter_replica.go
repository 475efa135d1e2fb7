package server

import (
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
)

// NewReplicaServerAdapter creates the adapter of the replica service. dial
// creates handles for members announced by the coordinator
func NewReplicaServerAdapter(replica replication.IReplica, dial replication.Dialer) IRPCServerAdapter {
	return &replicaServerAdapterImpl{replica: replica, dial: dial}
}

type replicaServerAdapterImpl struct {
	replica replication.IReplica
	dial    replication.Dialer
}

func (a *replicaServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if resp, ok := handleAcceptor(a.replica, req); ok {
		return resp
	}

	switch req.MsgType {
	case common.MsgTAdd:
		addr, errResp := parseAddr(req)
		if errResp != nil {
			return errResp
		}
		handle, err := a.dial(addr)
		if err != nil {
			return common.NewResponse(common.MsgTAdd, err)
		}
		return common.NewResponse(common.MsgTAdd, a.replica.Add(addr, handle))
	case common.MsgTRemove:
		addr, errResp := parseAddr(req)
		if errResp != nil {
			return errResp
		}
		return common.NewResponse(common.MsgTRemove, a.replica.Remove(addr))
	case common.MsgTValidate:
		if req.Tx == nil {
			return invalidRequest(req, "missing transaction")
		}
		vote, err := a.replica.Validate(*req.Tx)
		return common.NewValidateResponse(vote, err)
	case common.MsgTCommit:
		if req.Tx == nil {
			return invalidRequest(req, "missing transaction")
		}
		return common.NewResponse(common.MsgTCommit, a.replica.Commit(*req.Tx))
	case common.MsgTAbort:
		if req.Tx == nil {
			return invalidRequest(req, "missing transaction")
		}
		return common.NewResponse(common.MsgTAbort, a.replica.Abort(*req.Tx))
	case common.MsgTShutdown:
		return common.NewResponse(common.MsgTShutdown, a.replica.Shutdown())
	default:
		return unsupported("replica", req)
	}
}
