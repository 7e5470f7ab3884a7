package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/services"
	"earntracker/internal/storage"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and copy tax rules",
	}

	var (
		listUser string
		year     int
		quarter  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's tax rules, optionally for one --year and --quarter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.lookupUser(cmd, listUser)
			if err != nil {
				return err
			}
			repo, err := a.store()
			if err != nil {
				return err
			}

			var f storage.RuleFilter
			if cmd.Flags().Changed("year") {
				f.Year = &year
			}
			if cmd.Flags().Changed("quarter") {
				f.Quarter = &quarter
			}
			rules, err := services.NewRuleService(repo, nil).List(cmd.Context(), u.ID, f)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), rules)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPERIOD\tNAME\tKIND\tVALUE\tACTIVE")
			for _, r := range rules {
				p := period.Period{Year: r.Year, Quarter: r.Quarter}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n",
					r.ID, p, r.Name, r.Kind, core.FormatAmount(r.Value), r.Active)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&listUser, "user", "", "username")
	list.Flags().IntVar(&year, "year", 0, "calendar year")
	list.Flags().IntVar(&quarter, "quarter", 0, "quarter 1-4")

	var copyUser, from, to string
	copyCmd := &cobra.Command{
		Use:     "copy",
		Short:   "Replace the rules of --to with a copy of the rules of --from",
		Example: "  taxctl rules copy --user olena --from 2024-Q1 --to 2024-Q2",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.lookupUser(cmd, copyUser)
			if err != nil {
				return err
			}
			source, err := period.Parse(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			target, err := period.Parse(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			svc, err := a.taxes()
			if err != nil {
				return err
			}
			res, err := svc.CopyTaxRules(cmd.Context(), u.ID, source, target)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d rules from %s to %s\n", res.Count, source, target)
			return nil
		},
	}
	copyCmd.Flags().StringVar(&copyUser, "user", "", "username")
	copyCmd.Flags().StringVar(&from, "from", "", "source quarter, YYYY-QN")
	copyCmd.Flags().StringVar(&to, "to", "", "target quarter, YYYY-QN")
	_ = copyCmd.MarkFlagRequired("from")
	_ = copyCmd.MarkFlagRequired("to")

	cmd.AddCommand(list, copyCmd)
	return cmd
}
