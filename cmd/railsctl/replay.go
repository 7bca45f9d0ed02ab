package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
)

func newReplayCmd(variantDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Work with saved replays and action logs",
	}
	cmd.AddCommand(
		newReplayInspectCmd(),
		newReplayVerifyCmd(variantDir),
		newReplayRunCmd(variantDir),
	)
	return cmd
}

func loadReplay(path string) (*game.Replay, error) {
	id, ok := strings.CutSuffix(filepath.Base(path), ".replay")
	if !ok {
		return nil, fmt.Errorf("%s is not a .replay file", path)
	}
	return game.LoadReplayFromFile(filepath.Dir(path), id)
}

func newReplayInspectCmd() *cobra.Command {
	var frames bool
	cmd := &cobra.Command{
		Use:   "inspect <file.replay>",
		Short: "Show a replay's setup and frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadReplay(args[0])
			if err != nil {
				return err
			}
			printHeader("Replay " + r.GameID)
			printKV("variant", r.Variant)
			printKV("seed", r.Setup.Seed)
			ids := make([]string, 0, len(r.Setup.Players))
			for _, p := range r.Setup.Players {
				ids = append(ids, p.ID)
			}
			printKV("players", strings.Join(ids, ", "))
			printKV("frames", r.Size())
			if r.Size() > 0 {
				last := r.At(r.Size() - 1).View
				printKV("round", last.Round.Name)
				printKV("finished", last.Finished)
				if last.EndReason != "" {
					printKV("end reason", last.EndReason)
				}
			}
			if !frames {
				return nil
			}
			for i := 0; i < r.Size(); i++ {
				f := r.At(i)
				fmt.Printf("%5d  %-14s %-8s %s  %s\n", f.Index, f.Kind, f.EntityID, f.Checksum[:12], f.View.Round.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&frames, "frames", false, "list every frame")
	return cmd
}

func newReplayVerifyCmd(variantDir *string) *cobra.Command {
	var variantName string
	cmd := &cobra.Command{
		Use:   "verify <file.replay>...",
		Short: "Replay recorded actions and compare every checksum",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolve := engine.DirResolver(*variantDir)
			failed := 0
			for _, path := range args {
				r, err := loadReplay(path)
				if err != nil {
					printFailure("%s: %v", path, err)
					failed++
					continue
				}
				name := r.Variant
				if variantName != "" {
					name = variantName
				}
				v, err := resolve(name)
				if err != nil {
					printFailure("%s: %v", path, err)
					failed++
					continue
				}
				if err := r.Verify(v.Config, v.Policies); err != nil {
					printFailure("%s: %v", path, err)
					failed++
					continue
				}
				printSuccess("%s: %d frames verified", path, r.Size())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d replays failed verification", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&variantName, "variant", "", "override the variant recorded in the replay")
	return cmd
}

// actionLog is the JSON form accepted by "replay run".
type actionLog struct {
	Variant string             `json:"variant"`
	Players []game.PlayerSetup `json:"players"`
	Seed    int64              `json:"seed"`
	Actions []json.RawMessage  `json:"actions"`
}

func newReplayRunCmd(variantDir *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run <log.json>",
		Short: "Apply a JSON action log to a fresh game and print the result",
		Long: `The log is {"variant": "...", "players": [{"id": "..."}], "seed": 1, "actions": [...]}
with each action in the same form the server accepts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var log actionLog
			if err := json.Unmarshal(data, &log); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			v, err := engine.DirResolver(*variantDir)(log.Variant)
			if err != nil {
				return err
			}
			actions := make([]action.Action, 0, len(log.Actions))
			for i, raw := range log.Actions {
				a, err := action.Decode(raw)
				if err != nil {
					return fmt.Errorf("action %d: %w", i, err)
				}
				actions = append(actions, a)
			}
			setup := game.Setup{ID: strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])), Players: log.Players, Seed: log.Seed}
			g, err := game.ReplayActions(v.Config, v.Policies, setup, actions)
			if err != nil {
				return err
			}

			view := g.View()
			if asJSON {
				return printJSON(view)
			}
			printHeader("Game " + view.ID)
			printKV("actions", view.Actions)
			printKV("round", view.Round.Name)
			printKV("active", strings.Join(view.Round.ActiveEntities, ", "))
			printKV("checksum", g.Checksum())
			if view.Finished {
				printWarn("game over: %s", view.EndReason)
				for _, s := range view.Standings {
					printKV(s.PlayerID, s.NetWorth)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full view as JSON")
	return cmd
}
