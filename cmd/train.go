package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/solarcast/core/training"
	"github.com/kilianp07/solarcast/infra/logger"
)

var trainSelect string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the forecast models and save the selected artifact",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainSelect, "select", "", "model kind to persist (default: lowest MAE)")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	tc := cfg.Training
	if trainSelect != "" {
		tc.Select = trainSelect
	}
	if err := tc.Validate(); err != nil {
		return err
	}
	rep, err := training.NewTrainer(tc, logger.New("training")).Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%-20s %12s %8s\n", "model", "MAE", "R2")
	for _, r := range rep.Results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "%-20s failed: %s\n", r.Name, r.Error)
			continue
		}
		_, _ = fmt.Fprintf(out, "%-20s %12.4f %8.4f\n", r.Name, r.MAE, r.R2)
	}
	_, _ = fmt.Fprintf(out, "selected %s -> %s\n", rep.Selected, rep.ArtifactPath)
	return nil
}
