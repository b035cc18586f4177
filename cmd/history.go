package cmd

import (
	"context"
	"math"

	"github.com/spf13/cobra"

	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/pkg/export"
)

var (
	tailN        int
	exportFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the sensor history",
}

var historyTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the newest readings as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rows, err := readHistory(cmd.Context(), tailN)
		if err != nil {
			return err
		}
		return export.WriteReadings(cmd.OutOrStdout(), export.FormatCSV, rows)
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole history as CSV or JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		rows, err := readHistory(cmd.Context(), math.MaxInt)
		if err != nil {
			return err
		}
		return export.WriteReadings(cmd.OutOrStdout(), f, rows)
	},
}

func init() {
	historyTailCmd.Flags().IntVarP(&tailN, "lines", "n", 10, "number of readings")
	historyExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or json")
	historyCmd.AddCommand(historyTailCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func readHistory(ctx context.Context, n int) ([]model.Reading, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return store.Tail(ctx, n)
}
