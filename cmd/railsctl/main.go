package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var variantDir string

	root := &cobra.Command{
		Use:          "railsctl",
		Short:        "Inspect variants, replays and running rails games",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&variantDir, "variant-dir", os.Getenv("RAILS_ENGINE_VARIANT_DIR"), "directory of YAML variants")

	root.AddCommand(
		newVariantsCmd(&variantDir),
		newReplayCmd(&variantDir),
		newRPCCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
