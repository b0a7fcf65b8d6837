package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/staging"
)

var stagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Inspect the staged-lead quarantine",
	Long:  "Commands for listing and viewing staged leads awaiting disposition.",
}

// -- staged list --

var stagedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged leads for an account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initStores(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		accountID, _ := cmd.Flags().GetString("account")
		search, _ := cmd.Flags().GetString("search")
		state, _ := cmd.Flags().GetString("state")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := staging.Filter{Search: search, Limit: limit}
		if state != "" {
			filter.States = []model.StagedState{model.StagedState(state)}
		}

		leads, err := env.Staged.List(ctx, accountID, filter)
		if err != nil {
			return eris.Wrap(err, "staged list")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No staged leads found.")
			return nil
		}

		formatStagedList(os.Stdout, leads)
		return nil
	},
}

// -- staged show --

var stagedShowCmd = &cobra.Command{
	Use:   "show <staged-id>",
	Short: "Show full details of a staged lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initStores(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Staged.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "staged show")
		}
		if lead == nil {
			return eris.Errorf("staged lead %s not found", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

func formatStagedList(out io.Writer, leads []model.StagedLead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tORIGIN\tSTATE\tRECEIVED")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.Name, l.Phone, l.Origin, l.State,
			l.ReceivedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func init() {
	stagedListCmd.Flags().String("account", "", "account id (required)")
	stagedListCmd.Flags().String("search", "", "filter by name, phone or email")
	stagedListCmd.Flags().String("state", "", "filter by state (new, updated, ignored, consolidated)")
	stagedListCmd.Flags().Int("limit", 50, "max number of leads to display")
	_ = stagedListCmd.MarkFlagRequired("account")

	stagedCmd.AddCommand(stagedListCmd)
	stagedCmd.AddCommand(stagedShowCmd)
	rootCmd.AddCommand(stagedCmd)
}
