package web

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/common"
	"github.com/dmitrijs2005/snapgram/internal/config"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer publishes backend reachability over the standard gRPC health
// service, under common.ServiceName.
type HealthServer struct {
	address  string
	pinger   Pinger
	interval time.Duration
	srv      *health.Server
	logger   logging.Logger
}

func NewHealthServer(address string, p Pinger, interval time.Duration, l logging.Logger) *HealthServer {
	if interval <= 0 {
		interval = config.DefaultStatusCheckInterval
	}
	srv := health.NewServer()
	srv.SetServingStatus(common.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		address:  address,
		pinger:   p,
		interval: interval,
		srv:      srv,
		logger:   l.With("module", "health"),
	}
}

// Check pings the backend once and updates the published status.
func (h *HealthServer) Check(ctx context.Context) bool {
	err := h.pinger.Ping(ctx)
	if err != nil {
		h.logger.Warn(ctx, "backend unreachable", "error", err)
		h.srv.SetServingStatus(common.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	h.srv.SetServingStatus(common.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return true
}

// Watch checks immediately, then on every interval until ctx is done.
func (h *HealthServer) Watch(ctx context.Context) error {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Status returns the currently published status of the backend service.
func (h *HealthServer) Status(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := h.srv.Check(ctx, &healthpb.HealthCheckRequest{Service: common.ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

// Run serves the health service until ctx is done.
func (h *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", h.address)
	if err != nil {
		return err
	}
	return h.serve(ctx, listen)
}

func (h *HealthServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.srv)

	go func() {
		<-ctx.Done()
		h.logger.Info(ctx, "Stopping health server...")
		h.srv.Shutdown()
		srv.GracefulStop()
	}()

	h.logger.Info(ctx, "Starting health server", "address", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
