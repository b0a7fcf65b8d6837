package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/canonical"
	"github.com/sells-group/leadflow/internal/normalize"
)

var (
	importCSVPath string
	importAccount string
	importCountry string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Backfill canonical leads from a CSV export",
	Long:  "Bulk-loads canonical leads via the COPY protocol. Requires the postgres driver; dedup is not applied, so point this at an empty or trusted store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		if cfg.Store.Driver != "postgres" {
			return eris.New("import requires the postgres driver")
		}
		ctx := cmd.Context()

		env, err := initStores(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close()

		n, err := canonical.ImportCSV(ctx, env.pool, importAccount, importCountry, f)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}

		zap.L().Info("import complete",
			zap.Int64("imported", n),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importAccount, "account", "", "account id to import into (required)")
	importCmd.Flags().StringVar(&importCountry, "country-code", normalize.DefaultCountryCode, "country prefix for domestic phone numbers")
	_ = importCmd.MarkFlagRequired("csv")
	_ = importCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(importCmd)
}
