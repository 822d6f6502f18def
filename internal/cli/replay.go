package cli

import (
	"github.com/spf13/cobra"

	"fx-arb-watch/internal/app"
)

var (
	replayFile      string
	replayBatchSize int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Process a captured wire-format feed file offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReplayOptions{
			File:      replayFile,
			BatchSize: replayBatchSize,
		}
		return getApp().Replay(cmd.Context(), opts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Path to captured feed records (concatenated 32-byte records)")
	replayCmd.Flags().IntVar(&replayBatchSize, "batch-size", 0, "Records per simulated datagram (default 50)")
}
