package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvigier/loadshift/config"
	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/schedule"
	"github.com/rvigier/loadshift/infra/logger"
	"github.com/rvigier/loadshift/infra/lpsolve"
	"github.com/rvigier/loadshift/infra/store"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Print the ideal and nadir points used for scalarization",
	RunE:  runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Store, logger.New("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	params, err := st.LoadParameters(cmd.Context())
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}

	solver := lpsolve.New(cfg.Solver, logger.New("lpsolve"))
	obj := schedule.NewObjectiveManager(params, solver, cfg.Schedule.Calibration,
		coremetrics.NopSink{}, logger.New("calibrate"))

	cal := obj.Calibration(cmd.Context())
	nf := obj.NormalizationFactors(cmd.Context())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "EC ideal: %.6f (found: %t)\n", cal.ECIdeal, cal.ECIdealFound)
	fmt.Fprintf(out, "PL ideal: %.6f (found: %t)\n", cal.PLIdeal, cal.PLIdealFound)
	fmt.Fprintf(out, "EC nadir: %.6f\n", cal.ECNadir)
	fmt.Fprintf(out, "PL nadir: %.6f\n", cal.PLNadir)
	fmt.Fprintf(out, "EC normalization: %.6f\n", nf.ECNorm)
	fmt.Fprintf(out, "PL normalization: %.6f\n", nf.PLNorm)
	return nil
}
