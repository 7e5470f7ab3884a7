package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"earntracker/internal/core"
	"earntracker/internal/rates"
	"earntracker/internal/services"
)

func newIncomeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Record and list income entries",
	}

	var (
		addUser     string
		amount      string
		currency    string
		rate        string
		date        string
		description string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Record an income entry",
		Long: `Record an income entry. Amounts and rates accept a dot or a comma as
decimal separator. Without --rate the NBU rate of the date is used.`,
		Example: "  taxctl income add --user olena --amount 1200,50 --currency USD --date 2024-02-15",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.lookupUser(cmd, addUser)
			if err != nil {
				return err
			}
			e := core.IncomeEntry{
				UserID:      u.ID,
				Currency:    currency,
				Description: description,
			}
			if e.Amount, err = core.ParseAmount(amount); err != nil {
				return fmt.Errorf("--amount %q: %w", amount, err)
			}
			if rate != "" {
				if e.ExchangeRate, err = core.ParseAmount(rate); err != nil {
					return fmt.Errorf("--rate %q: %w", rate, core.ErrInvalidRate)
				}
			}
			if e.Date, err = core.ParseDate(date); err != nil {
				return err
			}

			svc, err := a.incomes()
			if err != nil {
				return err
			}
			created, err := svc.Create(cmd.Context(), e)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Income %d recorded: %s %s at %s on %s\n",
				created.ID, core.FormatAmount(created.Amount), created.Currency, created.ExchangeRate, created.Date)
			return nil
		},
	}
	add.Flags().StringVar(&addUser, "user", "", "username")
	add.Flags().StringVar(&amount, "amount", "", "amount, e.g. 1200.50 or 1200,50")
	add.Flags().StringVar(&currency, "currency", "", "ISO currency code (default base currency)")
	add.Flags().StringVar(&rate, "rate", "", "base currency units per unit of --currency")
	add.Flags().StringVar(&date, "date", "", "date received, YYYY-MM-DD")
	add.Flags().StringVar(&description, "description", "", "optional note")
	_ = add.MarkFlagRequired("amount")
	_ = add.MarkFlagRequired("date")

	var (
		listUser   string
		start, end string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List income entries, optionally between --start and --end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.lookupUser(cmd, listUser)
			if err != nil {
				return err
			}
			svc, err := a.incomes()
			if err != nil {
				return err
			}

			var entries []core.IncomeEntry
			if start != "" {
				entries, err = svc.ListByPeriod(cmd.Context(), u.ID, start, end)
			} else {
				entries, err = svc.List(cmd.Context(), u.ID)
			}
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCURRENCY\tRATE\tNORMALIZED\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Date, core.FormatAmount(e.Amount), e.Currency, e.ExchangeRate,
					core.FormatAmount(e.NormalizedAmount()), e.Description)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&listUser, "user", "", "username")
	list.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	list.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	list.MarkFlagsRequiredTogether("start", "end")

	cmd.AddCommand(add, list)
	return cmd
}

func (a *app) incomes() (*services.IncomeService, error) {
	repo, err := a.store()
	if err != nil {
		return nil, err
	}
	src := rates.NewNBUClient(a.cfg.RatesURL, a.cfg.BaseCurrency, rates.WithLogger(a.logger))
	return services.NewIncomeService(repo, src, a.cfg.BaseCurrency, nil), nil
}
