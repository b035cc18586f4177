package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/solarcast/app"
	"github.com/kilianp07/solarcast/infra/logger"
)

var (
	simInterval time.Duration
	simSeed     uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Append simulated sensor readings to the history",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 0, "time between readings (overrides simulator.interval_ms)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "random seed (overrides simulator.seed)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	if simInterval > 0 {
		cfg.Simulator.IntervalMS = int(simInterval / time.Millisecond)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulator.Seed = simSeed
	}
	if err := cfg.Simulator.Validate(); err != nil {
		return err
	}
	sim, err := app.NewSimulation(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sim.Close(); err != nil {
			logger.New("main").Errorf("simulator close: %v", err)
		}
	}()
	return sim.Run(ctx)
}
