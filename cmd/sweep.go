package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sells-group/tablesync/internal/transfer"
)

var (
	sweepFlags       tableFlags
	sweepDataset     string
	sweepConcurrency int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run update for every document in a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if sweepConcurrency > 0 {
			cfg.Sweep.Concurrency = sweepConcurrency
		}
		if err := cfg.Validate("sweep"); err != nil {
			return err
		}
		coords, table, err := sweepFlags.resolve(cfg.Store)
		if err != nil {
			return err
		}

		svc, err := initService(cfg)
		if err != nil {
			return err
		}

		bar := newProgressBar(cmd.ErrOrStderr(), "sweeping "+sweepDataset)
		res, err := svc.Sweep(ctx, sweepDataset, transfer.UpdateRequest{Coordinates: coords, Table: table},
			cfg.Sweep.Concurrency, transfer.WithProgress(bar))
		_ = bar.Finish()
		if err != nil {
			return eris.Wrap(err, "sweep")
		}
		printSweepSummary(cmd.ErrOrStderr(), res)
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func newProgressBar(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSweepSummary(w io.Writer, res *transfer.SweepResult) {
	fmt.Fprintln(w)
	color.New(color.FgGreen).Fprintf(w, "updated %d", res.Updated)
	fmt.Fprintf(w, ", skipped %d, ", res.Skipped)
	if res.Failed > 0 {
		color.New(color.FgRed).Fprintf(w, "failed %d\n", res.Failed)
	} else {
		fmt.Fprintf(w, "failed %d\n", res.Failed)
	}
}

func init() {
	sweepFlags.register(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepDataset, "dataset", "", "dataset or database id to sweep")
	sweepCmd.Flags().IntVar(&sweepConcurrency, "concurrency", 0, "parallel updates (default from config)")
	_ = sweepCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(sweepCmd)
}
