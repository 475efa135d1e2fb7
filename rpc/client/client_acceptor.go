package client

import (
	"fmt"
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/rpc/common"
)

// remoteAcceptor implements paxos.IAcceptor on top of an rpc client, it is
// embedded by the replica and coordinator handles
type remoteAcceptor struct {
	*rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see paxos.IAcceptor)
// --------------------------------------------------------------------------

func (a *remoteAcceptor) Prepare(round, id int64) (paxos.Promise[protocol.Transaction], error) {
	resp, err := a.invoke(common.NewPrepareRequest(round, id))
	if err != nil {
		return paxos.Promise[protocol.Transaction]{}, err
	}
	return resp.Promise(), nil
}

func (a *remoteAcceptor) Accept(round int64, proposal paxos.Proposal[protocol.Transaction]) (protocol.Transaction, error) {
	resp, err := a.invoke(common.NewAcceptRequest(round, proposal))
	if err != nil {
		return protocol.Transaction{}, err
	}
	if resp.Tx == nil {
		return protocol.Transaction{}, fmt.Errorf("accept response for round %d carries no value", round)
	}
	return *resp.Tx, nil
}

func (a *remoteAcceptor) Learn(round int64, value protocol.Transaction) error {
	_, err := a.invoke(common.NewLearnRequest(round, value))
	return err
}
