// Package grpc runs the storefront's gRPC listener. It serves the standard
// grpc.health.v1.Health service, whose status follows the backing stores,
// so orchestrators can probe readiness without going through HTTP.
//
// Every unary call passes through recovery, logging and metrics interceptors.
//
//	srv, err := grpc.Start(ctx, config.GRPCPort(), grpc.Check("mongo", mongo.Ping))
//	defer srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// ─── Prometheus metrics ───────────────────────────────────────────────────────

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "Total number of gRPC calls completed by method and code.",
	}, []string{"grpc_method", "grpc_code"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handling_seconds",
		Help:      "Histogram of gRPC response latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"grpc_method"})
)

func init() {
	metrics.MustRegister(requestsTotal, requestDuration)
}

// ─── Interceptors ─────────────────────────────────────────────────────────────

// recoveryInterceptor turns a handler panic into codes.Internal.
func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	logger.Debug("grpc: request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", status.Code(err).String(),
	)
	return resp, err
}

func metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	requestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	requestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}

// ─── Health ───────────────────────────────────────────────────────────────────

// Checker probes one dependency; a non-nil error marks the service NOT_SERVING.
type Checker struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Check is shorthand for a Checker literal.
func Check(name string, probe func(ctx context.Context) error) Checker {
	return Checker{Name: name, Probe: probe}
}

// probeAll runs every checker and reports the overall status.
func probeAll(ctx context.Context, checks []Checker) grpc_health_v1.HealthCheckResponse_ServingStatus {
	for _, c := range checks {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Probe(pctx)
		cancel()
		if err != nil {
			logger.Warn("grpc: health probe failed", "check", c.Name, "error", err)
			return grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

// ─── Server ───────────────────────────────────────────────────────────────────

// Server is a running gRPC listener.
type Server struct {
	srv    *grpc.Server
	lis    net.Listener
	health *health.Server
	cancel context.CancelFunc
}

// Start listens on port, registers health and reflection, and serves in the
// background. Health is re-probed every 15 seconds until Stop.
func Start(ctx context.Context, port string, checks ...Checker) (*Server, error) {
	addr := ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}
	return serve(ctx, lis, 15*time.Second, checks...), nil
}

func serve(ctx context.Context, lis net.Listener, every time.Duration, checks ...Checker) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor,
			loggingInterceptor,
			metricsInterceptor,
		),
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	ctx, cancel := context.WithCancel(ctx)
	s := &Server{srv: srv, lis: lis, health: hs, cancel: cancel}

	hs.SetServingStatus("", probeAll(ctx, checks))
	go s.watch(ctx, every, checks)

	logger.Info("grpc: server starting", "addr", lis.Addr().String())
	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc: serve error", "error", err)
		}
	}()

	return s
}

func (s *Server) watch(ctx context.Context, every time.Duration, checks []Checker) {
	if len(checks) == 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.health.SetServingStatus("", probeAll(ctx, checks))
		}
	}
}

// Addr is the bound address.
func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Stop marks the service NOT_SERVING and waits for in-flight RPCs.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	logger.Info("grpc: server shutting down")
	s.cancel()
	s.health.Shutdown()
	s.srv.GracefulStop()
}
