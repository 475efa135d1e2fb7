package server

import (
	"context"
	"errors"
	"fmt"
	vmmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/panunburn/kv/rpc/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net"
	"net/http"
	"time"
)

// --------------------------------------------------------------------------
// RPC metrics
// --------------------------------------------------------------------------

// recordRequest counts a served request and its latency per service and message type
func recordRequest(serviceID uint64, msgType common.MessageType, failed bool, start time.Time) {
	labels := fmt.Sprintf(`{service=%q,type=%q}`, common.ServiceName(serviceID), msgType)
	vmmetrics.GetOrCreateCounter("kv_rpc_requests_total" + labels).Inc()
	if failed {
		vmmetrics.GetOrCreateCounter("kv_rpc_errors_total" + labels).Inc()
	}
	vmmetrics.GetOrCreateSummary("kv_rpc_request_duration_seconds" + labels).UpdateDuration(start)
}

// --------------------------------------------------------------------------
// Metrics HTTP server
// --------------------------------------------------------------------------

// metricsServer serves the cluster metrics (prometheus), the rpc metrics
// (VictoriaMetrics) and a health check
type metricsServer struct {
	httpServer *http.Server
	listener   net.Listener
}

func newMetricsServer(addr string) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/metrics/rpc", func(w http.ResponseWriter, r *http.Request) {
		vmmetrics.WritePrometheus(w, false)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &metricsServer{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start binds the endpoint and serves in the background
func (m *metricsServer) Start() error {
	listener, err := net.Listen("tcp", m.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	m.listener = listener
	Logger.Infof("metrics server listening on %s", listener.Addr())

	go func() {
		if err := m.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address
func (m *metricsServer) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *metricsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	Logger.Infof("metrics server stopped")
	return nil
}
