package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/portfolio"
)

const dateLayout = "2006-01-02"

func parseDecimal(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func parseDate(name, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}

func newStocksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stocks",
		Short: "Browse stocks",
	}

	var q portfolio.Query
	list := &cobra.Command{
		Use:   "list",
		Short: "List stocks with optional filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			out, err := portfolio.NewStocks(api).List(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	list.Flags().StringVarP(&q.SearchTerm, "search", "s", "", "search term")
	list.Flags().StringVar(&q.Industry, "industry", "", "industry filter")
	list.Flags().StringVar(&q.SortBy, "sort", "", "sort column")
	list.Flags().BoolVar(&q.Descending, "desc", false, "sort descending")
	list.Flags().IntVar(&q.PageNumber, "page", 0, "page number")
	list.Flags().IntVar(&q.PageSize, "size", 0, "page size")

	get := &cobra.Command{
		Use:   "get <id|symbol>",
		Short: "Show one stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			stocks := portfolio.NewStocks(api)
			var st model.Stock
			if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
				st, err = stocks.ByID(cmd.Context(), id)
			} else {
				st, err = stocks.BySymbol(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return a.printJSON(st)
		},
	}

	var count int
	top := &cobra.Command{
		Use:       "top <gainers|losers|active>",
		Short:     "Show market movers",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"gainers", "losers", "active"},
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			stocks := portfolio.NewStocks(api)
			var fetch func(context.Context, int) ([]model.StockSummary, error)
			switch args[0] {
			case "gainers":
				fetch = stocks.TopGainers
			case "losers":
				fetch = stocks.TopLosers
			case "active":
				fetch = stocks.MostActive
			default:
				return fmt.Errorf("unknown list %q (gainers, losers or active)", args[0])
			}
			out, err := fetch(cmd.Context(), count)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	top.Flags().IntVarP(&count, "count", "n", portfolio.DefaultMovers, "how many")

	cmd.AddCommand(list, get, top)
	return cmd
}

func newTxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}

	var stockID int64
	var from, to string
	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions, optionally by stock or date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			tx := portfolio.NewTransactions(api)
			var out []model.Transaction
			switch {
			case stockID > 0:
				out, err = tx.ByStock(cmd.Context(), stockID)
			case from != "" || to != "":
				if from == "" || to == "" {
					return errors.New("--from and --to go together")
				}
				start, err := parseDate("from", from)
				if err != nil {
					return err
				}
				end, err := parseDate("to", to)
				if err != nil {
					return err
				}
				out, err = tx.ByDateRange(cmd.Context(), start, end)
				if err != nil {
					return err
				}
			default:
				out, err = tx.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	list.Flags().Int64Var(&stockID, "stock", 0, "stock id")
	list.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	list.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")

	var (
		addStock                    int64
		typ, qty, price, commission string
		date                        string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a buy, sell or dividend",
		Example: `  pf tx add --stock 5 --type buy --qty 10 --price 12.50 --commission 1 --date 2025-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := txRequest(addStock, typ, qty, price, commission, date)
			if err != nil {
				return err
			}
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			out, err := portfolio.NewTransactions(api).Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	add.Flags().Int64Var(&addStock, "stock", 0, "stock id")
	add.Flags().StringVar(&typ, "type", "buy", "buy, sell or dividend")
	add.Flags().StringVar(&qty, "qty", "", "quantity")
	add.Flags().StringVar(&price, "price", "", "unit price")
	add.Flags().StringVar(&commission, "commission", "0", "commission")
	add.Flags().StringVar(&date, "date", "", "trade date (YYYY-MM-DD, default today)")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad transaction id %q", args[0])
			}
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := portfolio.NewTransactions(api).Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.printf("deleted %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}

func txRequest(stockID int64, typ, qty, price, commission, date string) (model.TransactionRequest, error) {
	tt, err := model.ParseTransactionType(typ)
	if err != nil {
		return model.TransactionRequest{}, err
	}
	req := model.TransactionRequest{StockID: stockID, TransactionType: tt}
	if req.Quantity, err = parseDecimal("qty", qty); err != nil {
		return model.TransactionRequest{}, err
	}
	if req.Price, err = parseDecimal("price", price); err != nil {
		return model.TransactionRequest{}, err
	}
	if req.Commission, err = parseDecimal("commission", commission); err != nil {
		return model.TransactionRequest{}, err
	}
	if date == "" {
		req.TransactionDate = time.Now().UTC().Truncate(24 * time.Hour)
		return req, nil
	}
	if req.TransactionDate, err = parseDate("date", date); err != nil {
		return model.TransactionRequest{}, err
	}
	return req, nil
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the watchlist",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			out, err := portfolio.NewWatchlist(api).List(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}

	var target, stop, notes string
	var priority int
	add := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Follow a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := model.NewWatchlistItem{Symbol: args[0], Priority: priority, Notes: notes}
			var err error
			if item.TargetPrice, err = parseDecimal("target", target); err != nil {
				return err
			}
			if item.StopLoss, err = parseDecimal("stop", stop); err != nil {
				return err
			}
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			out, err := portfolio.NewWatchlist(api).Add(cmd.Context(), item)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	add.Flags().StringVar(&target, "target", "", "target price")
	add.Flags().StringVar(&stop, "stop", "", "stop loss")
	add.Flags().IntVar(&priority, "priority", 0, "priority 0-5")
	add.Flags().StringVar(&notes, "notes", "", "free-form notes")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Stop following an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.FromString(args[0])
			if err != nil {
				return fmt.Errorf("bad watchlist id %q", args[0])
			}
			api, err := a.api(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := portfolio.NewWatchlist(api).Remove(cmd.Context(), id); err != nil {
				return err
			}
			a.printf("removed %s\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	var (
		follow   bool
		interval time.Duration
		movers   int
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show transactions, watchlist and movers",
		Long: `Show transactions, watchlist and top movers in one document.

With --follow the dashboard is reprinted every --interval and the access
token is refreshed in the background before it expires. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			api, err := a.api(ctx, follow)
			if err != nil {
				return err
			}
			d := portfolio.NewDashboard(api, movers)
			show := func() error {
				ov, err := d.Load(ctx)
				if err != nil {
					return err
				}
				return a.printJSON(ov)
			}
			if err := show(); err != nil || !follow {
				return err
			}

			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					if err := show(); err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep refreshing")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refresh interval for --follow")
	cmd.Flags().IntVar(&movers, "movers", portfolio.DefaultMovers, "gainers and losers to show")
	return cmd
}
