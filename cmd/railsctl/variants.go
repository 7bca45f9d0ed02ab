package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game/variant"
)

func newVariantsCmd(variantDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "List available variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolve := engine.DirResolver(*variantDir)
			printHeader("Variants")
			for _, name := range engine.Variants(*variantDir) {
				v, err := resolve(name)
				if err != nil {
					printFailure("  %-10s %v", name, err)
					continue
				}
				cfg := v.Config
				printKV(name, fmt.Sprintf("%d-%d players, bank %d, %d corporations, %d phases",
					cfg.MinPlayers, cfg.MaxPlayers, cfg.BankCash, len(cfg.Corporations), len(cfg.Phases)))
			}
			return nil
		},
	}
	cmd.AddCommand(newVariantExportCmd(), newVariantCheckCmd())
	return cmd
}

func newVariantExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name>",
		Short: "Print a built-in variant as YAML, ready to copy and edit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := variant.Get(args[0])
			if err != nil {
				return err
			}
			out, err := variant.Marshal(args[0], v.Config)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}

func newVariantCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.yaml>...",
		Short: "Validate YAML variant files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if _, err := variant.LoadFile(path); err != nil {
					printFailure("%s: %v", path, err)
					failed++
					continue
				}
				printSuccess("%s: ok", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d variant files are invalid", failed, len(args))
			}
			return nil
		},
	}
}
