package client

import (
	"github.com/panunburn/kv/lib/ids"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
)

// NewRemoteIdSource connects to the id server at the endpoints of config
func NewRemoteIdSource(
	config common.ClientConfig,
	newTransport TransportFactory,
	serializer serializer.IRPCSerializer,
) (ids.IIdSource, error) {
	adapter, err := newAdapter(common.ServiceIDSource, config, newTransport, serializer, true)
	if err != nil {
		return nil, err
	}
	return &rpcIdSource{adapter}, nil
}

type rpcIdSource struct {
	*rpcClientAdapter
}

func (s *rpcIdSource) Next() (int64, error) {
	resp, err := s.invoke(common.NewNextIDRequest())
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}
