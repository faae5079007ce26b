package grpc

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/status"

	"github.com/turtacn/molscout/internal/config"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molscout/internal/testutil"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithHost("127.0.0.1")}, opts...)
	s, err := NewServer(config.GRPCConfig{Enabled: true, Port: 0}, opts...)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("grpc server did not stop")
		}
	})
	return s
}

func healthClient(t *testing.T, addr string) healthpb.HealthClient {
	t.Helper()
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func checkHealth(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestNewServer_InvalidPort(t *testing.T) {
	_, err := NewServer(config.GRPCConfig{Port: 70000})
	assert.Error(t, err)
}

func TestNewServer_PortInUse(t *testing.T) {
	first, err := NewServer(config.GRPCConfig{Port: 0}, WithHost("127.0.0.1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	_, err = NewServer(config.GRPCConfig{Port: portOf(t, first.Addr())}, WithHost("127.0.0.1"))
	assert.Error(t, err)
}

func TestServer_HealthServing(t *testing.T) {
	s := startServer(t)
	c := healthClient(t, s.Addr())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, c, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, c, ServiceName))
}

func TestServer_SetServing(t *testing.T) {
	s := startServer(t)
	c := healthClient(t, s.Addr())

	s.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, c, ""))

	s.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, c, ServiceName))
}

func TestServer_UnknownServiceIsNotFound(t *testing.T) {
	s := startServer(t)
	c := healthClient(t, s.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: "nope.v1.Nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func listServices(t *testing.T, addr string) ([]string, error) {
	t.Helper()
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	require.NoError(t, err)
	// A rejected stream surfaces as io.EOF on Send; Recv carries the status.
	_ = stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	})
	resp, err := stream.Recv()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		names = append(names, svc.GetName())
	}
	return names, nil
}

func TestServer_ReflectionEnabledByDefault(t *testing.T) {
	s := startServer(t)
	names, err := listServices(t, s.Addr())
	require.NoError(t, err)
	assert.Contains(t, names, "grpc.health.v1.Health")
}

func TestServer_ReflectionDisabled(t *testing.T) {
	s := startServer(t, WithReflection(false))
	_, err := listServices(t, s.Addr())
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestServer_MaxRecvMsgSize(t *testing.T) {
	s := startServer(t, WithMaxRecvMsgSize(64))
	c := healthClient(t, s.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: strings.Repeat("x", 256)})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, c, ""))
}

func TestServer_DoubleStart(t *testing.T) {
	s := startServer(t)
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.started
	}, time.Second, 10*time.Millisecond)
	assert.Error(t, s.Start())
}

func TestServer_StopBeforeStart(t *testing.T) {
	s, err := NewServer(config.GRPCConfig{Port: 0}, WithHost("127.0.0.1"))
	require.NoError(t, err)
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	logger := testutil.NewMockLogger()
	ic := recoveryUnaryInterceptor(logger)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc.Test/Boom"}

	_, err := ic(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.True(t, logger.HasMessage("error", "grpc panic recovered"))

	resp, err := ic(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	logger := testutil.NewMockLogger()
	ic := loggingUnaryInterceptor(logger)
	ok := func(context.Context, interface{}) (interface{}, error) { return nil, nil }
	fail := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "down")
	}

	_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, ok)
	assert.Empty(t, logger.GetMessages())

	_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc.Test/Do"}, ok)
	assert.True(t, logger.HasMessage("info", "grpc request"))

	_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc.Test/Do"}, fail)
	assert.True(t, logger.HasMessage("warn", "grpc request failed"))
	code, found := logger.FieldValue("grpc request failed", "code")
	require.True(t, found)
	assert.Equal(t, "Unavailable", code)
}

func TestMetricsUnaryInterceptor(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "molscout"}, nil)
	require.NoError(t, err)
	ic := metricsUnaryInterceptor(prometheus.NewAppMetrics(collector))

	_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc.Test/Do"},
		func(context.Context, interface{}) (interface{}, error) { return nil, nil })

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `molscout_grpc_requests_total{code="OK",method="Do",service="svc.Test"} 1`)
}

func TestSplitMethodName(t *testing.T) {
	svc, m := splitMethodName("/grpc.health.v1.Health/Check")
	assert.Equal(t, "grpc.health.v1.Health", svc)
	assert.Equal(t, "Check", m)

	svc, m = splitMethodName("bare")
	assert.Equal(t, "unknown", svc)
	assert.Equal(t, "bare", m)
}

func TestIsHealthCheck(t *testing.T) {
	assert.True(t, isHealthCheck("/grpc.health.v1.Health/Watch"))
	assert.False(t, isHealthCheck("/svc.Test/Do"))
}

func portOf(t *testing.T, addr string) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}
