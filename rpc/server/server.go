package server

import (
	"fmt"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/client"
	"github.com/panunburn/kv/rpc/common"
	"github.com/panunburn/kv/rpc/serializer"
	"github.com/panunburn/kv/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

// closer is a teardown step run by Stop
type closer struct {
	name  string
	close func() error
}

// NewRPCServer creates a new RPC server
// It takes a config, the server transport, the serializer and a factory for
// the client transports used to reach peers. Transport and serializer must
// match the ones of the other nodes
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewMsgpackSerializer(),
//		tcp.NewTCPClientTransport,
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
//	<-s.Done()
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	clientTransport client.TransportFactory,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &rpcServer{
		config:          config,
		transport:       transport,
		serializer:      serializer,
		clientTransport: clientTransport,
		services:        xsync.NewMapOf[uint64, IRPCServerAdapter](),
		done:            make(chan struct{}),
	}
}

type rpcServer struct {
	config          common.ServerConfig
	transport       transport.IRPCServerTransport
	serializer      serializer.IRPCSerializer
	clientTransport client.TransportFactory
	services        *xsync.MapOf[uint64, IRPCServerAdapter]
	self            protocol.Address
	metrics         *metricsServer

	mu       sync.Mutex
	closers  []closer
	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Serve sets up the node for its role and starts serving. It returns once
// the node is part of the cluster, Done is closed when the node stopped.
func (s *rpcServer) Serve() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if err := s.serve(); err != nil {
		if stopErr := s.Stop(); stopErr != nil {
			Logger.Warningf("cleanup after failed start: %v", stopErr)
		}
		return err
	}
	return nil
}

func (s *rpcServer) serve() error {
	if s.config.MetricsEndpoint != "" {
		s.metrics = newMetricsServer(s.config.MetricsEndpoint)
		if err := s.metrics.Start(); err != nil {
			return err
		}
		s.onStop("metrics server", s.metrics.Stop)
	}

	switch s.config.Role {
	case common.RoleCoordinator:
		return s.startCoordinator()
	case common.RoleReplica:
		return s.startReplica()
	case common.RoleIDSource:
		return s.startIDSource()
	default:
		return fmt.Errorf("invalid role %q. must be one of coordinator, replica, id", s.config.Role)
	}
}

// Stop tears the node down, the steps run in reverse order of setup. It is
// safe to call Stop more than once.
func (s *rpcServer) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		closers := s.closers
		s.closers = nil
		s.mu.Unlock()

		var result *multierror.Error
		for i := len(closers) - 1; i >= 0; i-- {
			start := time.Now()
			if err := closers[i].close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", closers[i].name, err))
				continue
			}
			Logger.Debugf("stopped %s in %s", closers[i].name, time.Since(start))
		}
		s.stopErr = result.ErrorOrNil()
		close(s.done)
		Logger.Infof("node stopped")
	})
	return s.stopErr
}

// Done is closed once the node stopped
func (s *rpcServer) Done() <-chan struct{} {
	return s.done
}

// Addr returns the bound address of the rpc transport
func (s *rpcServer) Addr() string {
	return s.transport.Addr()
}

// onStop registers a teardown step
func (s *rpcServer) onStop(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, closer{name: name, close: fn})
}

// listen registers the transport handler and starts the transport
func (s *rpcServer) listen() error {
	s.registerTransportHandler()
	if err := s.transport.Listen(s.config); err != nil {
		return err
	}
	s.onStop("transport", s.transport.Close)
	return nil
}

// --------------------------------------------------------------------------
// Request handling
// --------------------------------------------------------------------------

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(serviceID uint64, req []byte) []byte {
		start := time.Now()

		var msg common.Message
		var respMsg *common.Message

		if adapter, ok := s.services.Load(serviceID); !ok {
			respMsg = common.NewErrorResponse(fmt.Errorf("%w: service %s not served by this node", protocol.ErrInvalidRequest, common.ServiceName(serviceID)))
		} else if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(fmt.Errorf("%w: failed to deserialize request: %v", protocol.ErrInvalidRequest, err))
		} else {
			respMsg = adapter.Handle(&msg)
		}

		recordRequest(serviceID, msg.MsgType, respMsg.Err != "", start)

		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize %s response: %v", msg.MsgType, err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Errorf("failed to serialize response: %w", err)))
		}
		return val
	})
}

// advertiseAddress resolves the address announced to peers. Without an
// explicit advertise address the bound address is used, so port 0 endpoints
// announce their actual port
func (s *rpcServer) advertiseAddress() (protocol.Address, error) {
	config := s.config
	if config.Advertise == "" {
		if bound := s.transport.Addr(); bound != "" {
			config.Transport.Endpoint = bound
		}
	}
	return config.AdvertiseAddress()
}

// dialer returns the dialer for replica handles of peers
func (s *rpcServer) dialer() replication.Dialer {
	return client.NewDialer(s.config.PeerClientConfig(""), s.clientTransport, s.serializer)
}
