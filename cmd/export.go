package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tablesync/internal/transfer"
)

var (
	exportFlags   tableFlags
	exportDataset string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload every table row as a prompt document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		coords, table, err := exportFlags.resolve(cfg.Store)
		if err != nil {
			return err
		}

		svc, err := initService(cfg)
		if err != nil {
			return err
		}

		refs, err := svc.Export(ctx, transfer.ExportRequest{
			Coordinates:  coords,
			Table:        table,
			CollectionID: exportDataset,
		})
		if err != nil {
			return eris.Wrap(err, "export")
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, refs)
	},
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportDataset, "dataset", "", "destination dataset or database id")
	_ = exportCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(exportCmd)
}
