package server

import (
	"fmt"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/rpc/common"
)

// handleAcceptor serves the consensus messages shared by the coordinator and
// the replica service. ok is false for any other message type
func handleAcceptor(acceptor paxos.IAcceptor[protocol.Transaction], req *common.Message) (resp *common.Message, ok bool) {
	switch req.MsgType {
	case common.MsgTPrepare:
		promise, err := acceptor.Prepare(req.Round, req.ID)
		return common.NewPrepareResponse(promise, err), true
	case common.MsgTAccept:
		if req.Proposal == nil {
			return invalidRequest(req, "missing proposal"), true
		}
		value, err := acceptor.Accept(req.Round, *req.Proposal)
		return common.NewAcceptResponse(value, err), true
	case common.MsgTLearn:
		if req.Tx == nil {
			return invalidRequest(req, "missing value"), true
		}
		return common.NewResponse(common.MsgTLearn, acceptor.Learn(req.Round, *req.Tx)), true
	default:
		return nil, false
	}
}

// parseAddr reads the address field of req
func parseAddr(req *common.Message) (protocol.Address, *common.Message) {
	addr, err := protocol.ParseAddress(req.Addr)
	if err != nil {
		return protocol.Address{}, common.NewErrorResponse(fmt.Errorf("%w: %v", protocol.ErrInvalidRequest, err))
	}
	return addr, nil
}

// invalidRequest creates an error response for a malformed request
func invalidRequest(req *common.Message, reason string) *common.Message {
	return common.NewErrorResponse(fmt.Errorf("%w: %s %s", protocol.ErrInvalidRequest, req.MsgType, reason))
}

// unsupported creates an error response for a message type the service does not know
func unsupported(service string, req *common.Message) *common.Message {
	return common.NewErrorResponse(fmt.Errorf("%w: RPC %s - Unsupported message type: %s", protocol.ErrInvalidRequest, service, req.MsgType))
}
