package client

import (
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"io"
)

// IGatewayClient is a gateway handle holding a connection
type IGatewayClient interface {
	replication.IGateway
	io.Closer
}

// NewRemoteGateway connects to the gateway service at the endpoints of
// config. With several endpoints, requests are spread round-robin.
func NewRemoteGateway(
	config common.ClientConfig,
	newTransport TransportFactory,
	serializer serializer.IRPCSerializer,
) (IGatewayClient, error) {
	adapter, err := newAdapter(common.ServiceGateway, config, newTransport, serializer, true)
	if err != nil {
		return nil, err
	}
	return &rpcGateway{adapter}, nil
}

type rpcGateway struct {
	*rpcClientAdapter
}

func (g *rpcGateway) Process(cmd protocol.Command) (protocol.Result, error) {
	resp, err := g.invoke(common.NewProcessRequest(cmd))
	if err != nil {
		return protocol.Result{}, err
	}
	return resp.Result(), nil
}
