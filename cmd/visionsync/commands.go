package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "visionsync",
		Short: "Room analysis service: object detection, furniture recommendations and design advice",
		Long: `visionsync detects furniture in room photos, recommends catalog products
from a vector database and asks an LLM for improvement suggestions.

The fetch-model, seed and warmup commands prepare an image at build time;
serve runs the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newSeedCmd(opts),
		newFetchModelCmd(opts),
		newWarmupCmd(opts),
	)
	return rootCmd
}
