package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow/internal/consolidate"
	"github.com/sells-group/leadflow/internal/model"
)

var (
	consolidateDisposition string
	consolidateStatus      string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate <staged-id>...",
	Short: "Promote, merge or ignore staged leads",
	Long:  "Applies the chosen disposition to one or more staged leads. Items are processed independently; one failure does not stop the rest.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("consolidate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initStores(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		reqs := make([]consolidate.Request, 0, len(args))
		for _, id := range args {
			reqs = append(reqs, consolidate.Request{
				StagedID:    id,
				Disposition: model.Disposition(consolidateDisposition),
				Status:      consolidateStatus,
			})
		}

		summary := env.Engine.ConsolidateBulk(ctx, reqs)

		for _, item := range summary.Items {
			line := fmt.Sprintf("%s\t%s", item.StagedID, item.Outcome)
			if item.CanonicalID != 0 {
				line += fmt.Sprintf("\tcanonical=%d", item.CanonicalID)
			}
			if item.Message != "" {
				line += "\t" + item.Message
			}
			fmt.Fprintln(os.Stdout, line)
		}
		fmt.Fprintf(os.Stdout, "%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)

		if summary.Failed > 0 {
			// Non-zero exit so scripts notice partial failures, without
			// aborting the successful items.
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateDisposition, "disposition", "merge", "disposition to apply (promote, merge, ignore)")
	consolidateCmd.Flags().StringVar(&consolidateStatus, "status", "", "canonical status for promoted leads")
	rootCmd.AddCommand(consolidateCmd)
}
