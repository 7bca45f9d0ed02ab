package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/railyard/rails-server-go/internal/server"
)

type rpcOptions struct {
	addr    string
	timeout time.Duration
}

func (o *rpcOptions) call(cmd *cobra.Command, fn func(context.Context, *server.GameServiceClient) (*structpb.Struct, error)) error {
	conn, err := grpc.NewClient(o.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	out, err := fn(ctx, server.NewGameServiceClient(conn))
	if err != nil {
		return err
	}
	return printJSON(out.AsMap())
}

func newRPCCmd() *cobra.Command {
	opts := &rpcOptions{}
	cmd := &cobra.Command{
		Use:   "rpc",
		Short: "Call a running server over gRPC",
	}
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "localhost:50051", "server gRPC address")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-call timeout")

	cmd.AddCommand(
		newRPCCreateCmd(opts),
		newRPCSubmitCmd(opts),
		newRPCViewCmd(opts),
		newRPCLegalCmd(opts),
		newRPCUndoCmd(opts),
		&cobra.Command{
			Use:   "variants",
			Short: "List the server's variants",
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.call(cmd, func(ctx context.Context, c *server.GameServiceClient) (*structpb.Struct, error) {
					return c.ListVariants(ctx, &structpb.Struct{})
				})
			},
		},
	)
	return cmd
}

func newRPCCreateCmd(opts *rpcOptions) *cobra.Command {
	var variantName string
	var seed int64
	cmd := &cobra.Command{
		Use:   "create <player>...",
		Short: "Start a game",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			players := make([]any, 0, len(args))
			for _, id := range args {
				players = append(players, map[string]any{"id": id})
			}
			in, err := structpb.NewStruct(map[string]any{
				"variant": variantName,
				"players": players,
				"seed":    float64(seed),
			})
			if err != nil {
				return err
			}
			return opts.call(cmd, func(ctx context.Context, c *server.GameServiceClient) (*structpb.Struct, error) {
				return c.CreateGame(ctx, in)
			})
		},
	}
	cmd.Flags().StringVar(&variantName, "variant", "", "variant name (server default when empty)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano()%1_000_000, "shuffle seed")
	return cmd
}

func newRPCSubmitCmd(opts *rpcOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <game-id> <action-json>",
		Short: `Submit an action, e.g. '{"kind":"pass","entity_id":"ann"}'`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var act map[string]any
			if err := json.Unmarshal([]byte(args[1]), &act); err != nil {
				return fmt.Errorf("decode action: %w", err)
			}
			in, err := structpb.NewStruct(map[string]any{"game_id": args[0], "action": act})
			if err != nil {
				return err
			}
			return opts.call(cmd, func(ctx context.Context, c *server.GameServiceClient) (*structpb.Struct, error) {
				return c.SubmitAction(ctx, in)
			})
		},
	}
}

func newRPCViewCmd(opts *rpcOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view <game-id>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := structpb.NewStruct(map[string]any{"game_id": args[0]})
			if err != nil {
				return err
			}
			return opts.call(cmd, func(ctx context.Context, c *server.GameServiceClient) (*structpb.Struct, error) {
				return c.GetView(ctx, in)
			})
		},
	}
}

func newRPCLegalCmd(opts *rpcOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "legal <game-id> <entity-id>",
		Short: "List the action kinds an entity may submit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := structpb.NewStruct(map[string]any{
				"game_id":   args[0],
				"entity_id": strings.TrimSpace(args[1]),
			})
			if err != nil {
				return err
			}
			return opts.call(cmd, func(ctx context.Context, c *server.GameServiceClient) (*structpb.Struct, error) {
				return c.LegalActions(ctx, in)
			})
		},
	}
}

func newRPCUndoCmd(opts *rpcOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "undo <game-id>",
		Short: "Take back the last actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := structpb.NewStruct(map[string]any{"game_id": args[0], "count": float64(count)})
			if err != nil {
				return err
			}
			return opts.call(cmd, func(ctx context.Context, c *server.GameServiceClient) (*structpb.Struct, error) {
				return c.Undo(ctx, in)
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of actions to take back")
	return cmd
}
