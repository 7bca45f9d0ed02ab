package server

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/metrics"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(zap.NewNop(), engine.WithMetrics(metrics.New(prometheus.NewRegistry())))
}

type panicService struct{ *GameService }

func (panicService) GetView(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	panic("boom")
}

func dialService(t *testing.T, svc GameServiceServer) (*GameServiceClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	m := metrics.New(prometheus.NewRegistry())
	srv := grpc.NewServer(grpc.UnaryInterceptor(ChainUnaryInterceptors(
		RecoveryInterceptor(zap.NewNop()),
		LoggingInterceptor(zap.NewNop()),
		MetricsInterceptor(m),
	)))
	RegisterGameServiceServer(srv, svc)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewGameServiceClient(conn), conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func gbCreate(t *testing.T) *structpb.Struct {
	return mustStruct(t, map[string]any{
		"variant": "gb",
		"players": []any{
			map[string]any{"id": "ann"},
			map[string]any{"id": "bob"},
			map[string]any{"id": "cat"},
		},
		"seed": 3,
	})
}

func TestGRPCGameFlow(t *testing.T) {
	client, _ := dialService(t, NewGameService(newTestEngine(t), zap.NewNop(), "classic", ""))
	ctx := context.Background()

	out, err := client.CreateGame(ctx, gbCreate(t))
	require.NoError(t, err)
	g := out.GetFields()["game"].GetStructValue()
	require.NotNil(t, g)
	id := g.GetFields()["id"].GetStringValue()
	require.NotEmpty(t, id)
	assert.Equal(t, "gb", g.GetFields()["variant"].GetStringValue())

	legal, err := client.LegalActions(ctx, mustStruct(t, map[string]any{"game_id": id, "entity_id": "ann"}))
	require.NoError(t, err)
	assert.NotEmpty(t, legal.GetFields()["actions"].GetListValue().GetValues())

	out, err = client.SubmitAction(ctx, mustStruct(t, map[string]any{
		"game_id": id,
		"action":  map[string]any{"kind": "par", "entity_id": "ann", "corporation": "GWR", "share_price": 70},
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.GetFields()["game"].GetStructValue().GetFields()["actions"].GetNumberValue())

	out, err = client.Undo(ctx, mustStruct(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), out.GetFields()["game"].GetStructValue().GetFields()["actions"].GetNumberValue())

	out, err = client.GetView(ctx, mustStruct(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Equal(t, id, out.GetFields()["game"].GetStructValue().GetFields()["id"].GetStringValue())

	out, err = client.ListVariants(ctx, &structpb.Struct{})
	require.NoError(t, err)
	var names []string
	for _, v := range out.GetFields()["variants"].GetListValue().GetValues() {
		names = append(names, v.GetStringValue())
	}
	assert.Equal(t, []string{"classic", "gb", "usa"}, names)
}

func TestGRPCErrorCodes(t *testing.T) {
	client, _ := dialService(t, NewGameService(newTestEngine(t), zap.NewNop(), "classic", ""))
	ctx := context.Background()

	out, err := client.CreateGame(ctx, gbCreate(t))
	require.NoError(t, err)
	id := out.GetFields()["game"].GetStructValue().GetFields()["id"].GetStringValue()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"missing game id", func() error {
			_, err := client.GetView(ctx, &structpb.Struct{})
			return err
		}, codes.InvalidArgument},
		{"unknown game", func() error {
			_, err := client.GetView(ctx, mustStruct(t, map[string]any{"game_id": "nope"}))
			return err
		}, codes.NotFound},
		{"unknown variant", func() error {
			_, err := client.CreateGame(ctx, mustStruct(t, map[string]any{
				"variant": "1830",
				"players": []any{map[string]any{"id": "ann"}, map[string]any{"id": "bob"}},
			}))
			return err
		}, codes.InvalidArgument},
		{"duplicate player", func() error {
			_, err := client.CreateGame(ctx, mustStruct(t, map[string]any{
				"players": []any{map[string]any{"id": "ann"}, map[string]any{"id": "ann"}},
			}))
			return err
		}, codes.InvalidArgument},
		{"out of turn", func() error {
			_, err := client.SubmitAction(ctx, mustStruct(t, map[string]any{
				"game_id": id,
				"action":  map[string]any{"kind": "pass", "entity_id": "bob"},
			}))
			return err
		}, codes.FailedPrecondition},
		{"missing action", func() error {
			_, err := client.SubmitAction(ctx, mustStruct(t, map[string]any{"game_id": id}))
			return err
		}, codes.InvalidArgument},
		{"nothing to undo", func() error {
			_, err := client.Undo(ctx, mustStruct(t, map[string]any{"game_id": id}))
			return err
		}, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestGRPCRecoversFromPanic(t *testing.T) {
	svc := panicService{NewGameService(newTestEngine(t), zap.NewNop(), "classic", "")}
	client, _ := dialService(t, svc)

	_, err := client.GetView(context.Background(), mustStruct(t, map[string]any{"game_id": "x"}))
	assert.Equal(t, codes.Internal, status.Code(err))

	// The server keeps serving after a panic.
	_, err = client.ListVariants(context.Background(), &structpb.Struct{})
	assert.NoError(t, err)
}

func TestGRPCHealth(t *testing.T) {
	_, conn := dialService(t, NewGameService(newTestEngine(t), zap.NewNop(), "classic", ""))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var order []string
	mark := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
			order = append(order, name+">")
			resp, err := h(ctx, req)
			order = append(order, "<"+name)
			return resp, err
		}
	}
	chain := ChainUnaryInterceptors(mark("a"), mark("b"))
	_, err := chain(context.Background(), nil, &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a>", "b>", "handler", "<b", "<a"}, order)
}
