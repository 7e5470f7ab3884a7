package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/services"
)

func newTaxesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxes",
		Short: "Compute quarterly taxes",
	}

	var (
		username   string
		start, end string
		quarter    string
	)
	compute := &cobra.Command{
		Use:   "compute",
		Short: "Compute taxes for --quarter 2024-Q1 or a --start/--end range inside one quarter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.lookupUser(cmd, username)
			if err != nil {
				return err
			}
			svc, err := a.taxes()
			if err != nil {
				return err
			}

			var report services.TaxReport
			switch {
			case quarter != "":
				p, err := period.Parse(quarter)
				if err != nil {
					return err
				}
				report, err = svc.ComputePeriod(cmd.Context(), u.ID, p)
				if err != nil {
					return err
				}
			case start != "" && end != "":
				report, err = svc.ComputeQuarterTaxes(cmd.Context(), u.ID, start, end)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --quarter or both --start and --end are required")
			}

			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	compute.Flags().StringVar(&username, "user", "", "username")
	compute.Flags().StringVar(&quarter, "quarter", "", "quarter as YYYY-QN")
	compute.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	compute.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	compute.MarkFlagsMutuallyExclusive("quarter", "start")
	compute.MarkFlagsRequiredTogether("start", "end")

	var (
		yearUser string
		year     int
	)
	yearCmd := &cobra.Command{
		Use:   "year",
		Short: "Report the four quarters of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.lookupUser(cmd, yearUser)
			if err != nil {
				return err
			}
			svc, err := a.taxes()
			if err != nil {
				return err
			}
			report, err := svc.YearReport(cmd.Context(), u.ID, year)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), report)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "PERIOD\tINCOME\tTAX\t")
			for _, q := range report.Quarters {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\n", q.Period, core.FormatAmount(q.TotalIncome), core.FormatAmount(q.TotalTax))
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t\n", report.Year, core.FormatAmount(report.TotalIncome), core.FormatAmount(report.TotalTax))
			return tw.Flush()
		},
	}
	yearCmd.Flags().StringVar(&yearUser, "user", "", "username")
	yearCmd.Flags().IntVar(&year, "year", 0, "calendar year")
	_ = yearCmd.MarkFlagRequired("year")

	cmd.AddCommand(compute, yearCmd)
	return cmd
}

func (a *app) taxes() (*services.TaxService, error) {
	repo, err := a.store()
	if err != nil {
		return nil, err
	}
	// Changes made here reach the worker through stale snapshots.
	return services.NewTaxService(repo, nil), nil
}

func printReport(w io.Writer, r services.TaxReport) error {
	fmt.Fprintf(w, "Period %s (%s .. %s)\n", r.Period, r.Start, r.End)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TAX\tAMOUNT\t")
	for _, line := range r.Taxes {
		fmt.Fprintf(tw, "%s\t%s\t\n", line.Name, core.FormatAmount(line.Amount))
	}
	fmt.Fprintf(tw, "Total income\t%s\t\n", core.FormatAmount(r.TotalIncome))
	fmt.Fprintf(tw, "Total tax\t%s\t\n", core.FormatAmount(r.TotalTax))
	return tw.Flush()
}
