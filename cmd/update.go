package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tablesync/internal/transfer"
)

var (
	updateFlags tableFlags
	updateItem  string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Write a document's best response back into its table row",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("update"); err != nil {
			return err
		}
		coords, table, err := updateFlags.resolve(cfg.Store)
		if err != nil {
			return err
		}

		svc, err := initService(cfg)
		if err != nil {
			return err
		}

		doc, err := svc.UpdateByID(ctx, updateItem, transfer.UpdateRequest{Coordinates: coords, Table: table})
		if err != nil {
			return eris.Wrap(err, "update")
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, doc)
	},
}

func init() {
	updateFlags.register(updateCmd)
	updateCmd.Flags().StringVar(&updateItem, "item", "", "document id on the platform")
	_ = updateCmd.MarkFlagRequired("item")
	rootCmd.AddCommand(updateCmd)
}
