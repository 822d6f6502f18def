package cli

import (
	"github.com/spf13/cobra"

	"fx-arb-watch/internal/app"
)

var (
	simulateCross   string
	simulatePrice   float64
	simulateReverse float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an inconsistent quote pair through the detector",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Cross:        simulateCross,
			Price:        simulatePrice,
			ReversePrice: simulateReverse,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCross, "cross", "USD/EUR", "Currency pair to quote")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0.9, "Forward price for the pair")
	simulateCmd.Flags().Float64Var(&simulateReverse, "reverse-price", 1.2, "Price quoted for the inverted pair")
}
