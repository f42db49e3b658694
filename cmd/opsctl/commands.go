package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ops-analytics/internal/app"
	"ops-analytics/internal/config"
	"ops-analytics/internal/feed"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/reporting"
	"ops-analytics/internal/storage"
	"ops-analytics/internal/verification"
	"ops-analytics/internal/window"
)

// now is the reference clock for seeding and windows.
var now = time.Now

// windowFlags binds the shared window selector flags.
type windowFlags struct {
	kind, start, end string
}

func (w *windowFlags) bind(cmd *cobra.Command, def string) {
	cmd.Flags().StringVar(&w.kind, "window", def, "window: today, last-7-days, last-30-days, last-N-days, month-to-date, year-to-date, previous-month, all, custom")
	cmd.Flags().StringVar(&w.start, "start", "", "custom window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&w.end, "end", "", "custom window end (YYYY-MM-DD)")
}

func (w *windowFlags) selector() (window.Selector, error) {
	return window.ParseSelector(w.kind, w.start, w.end)
}

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded PostgreSQL and ClickHouse migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Storage.Backend == config.BackendMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory storage: nothing to migrate")
				return nil
			}
			stores, err := app.OpenStores(cmd.Context(), c.cfg.Storage, app.OpenOptions{Migrate: true, Logger: c.logger})
			if err != nil {
				return err
			}
			stores.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func seedCmd(c *cli) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the fixture dataset, or import trades from a CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			stores, err := app.OpenStores(ctx, c.cfg.Storage, app.OpenOptions{Migrate: true, Logger: c.logger})
			if err != nil {
				return err
			}
			defer stores.Close()

			if csvPath == "" {
				fx, err := stores.Seed(ctx, now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d houses, %d profiles, %d trades\n",
					len(fx.Houses), len(fx.Profiles), len(fx.Trades))
				return nil
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()

			trades, err := feed.ReadCSV(f, now().UTC())
			if err != nil {
				return err
			}
			if err := stores.Trades.InsertBulk(ctx, trades); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					return fmt.Errorf("import %s: already imported: %w", csvPath, err)
				}
				return fmt.Errorf("import %s: %w", csvPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d trades from %s\n", len(trades), csvPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to import instead of fixtures")
	return cmd
}

func metricsCmd(c *cli) *cobra.Command {
	var (
		wf        windowFlags
		dimension string
		store     bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute KPIs, equity and drawdown for a window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := wf.selector()
			if err != nil {
				return err
			}
			dim, err := metrics.ParseDimension(dimension)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			stores, err := c.open(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			opts := app.MetricsOptions(c.cfg)
			opts.MoverDimension = dim
			agg := metrics.NewAggregator(stores.Trades, stores.Snapshots, opts).WithClock(now)

			var res *metrics.Result
			if store {
				res, err = agg.ComputeAndStore(ctx, sel)
			} else {
				res, err = agg.ComputeWindow(ctx, sel)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"window":      res.Range.Key(),
					"computed_at": res.ComputedAt,
					"metrics":     res.Metrics,
				})
			}
			printMetrics(cmd.OutOrStdout(), res)
			return nil
		},
	}
	wf.bind(cmd, "month-to-date")
	cmd.Flags().StringVar(&dimension, "dimension", "category", "movers grouping: category, counterpart, market")
	cmd.Flags().BoolVar(&store, "store", false, "persist equity snapshots")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printMetrics(w io.Writer, res *metrics.Result) {
	m := res.Metrics
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Window\t%s\n", res.Range.Key())
	fmt.Fprintf(tw, "Closed / Open\t%d / %d\n", m.ClosedCount, m.OpenCount)
	fmt.Fprintf(tw, "Total Stake\t%s\n", m.TotalStake.StringFixed(2))
	fmt.Fprintf(tw, "Total Profit\t%s\n", m.TotalProfit.StringFixed(2))
	fmt.Fprintf(tw, "ROI\t%s%%\n", m.ROI.Shift(2).StringFixed(2))
	fmt.Fprintf(tw, "Win Rate\t%s%%\n", m.WinRate.Shift(2).StringFixed(2))
	fmt.Fprintf(tw, "Exposure\t%s\n", m.Exposure.StringFixed(2))
	fmt.Fprintf(tw, "Max Drawdown\t%s (%s%%)\n", m.Drawdown.MaxDrawdown.StringFixed(2), m.Drawdown.MaxDrawdownPct.Shift(2).StringFixed(2))
	fmt.Fprintf(tw, "Current Drawdown\t%s (%s%%)\n", m.Drawdown.CurrentDrawdown.StringFixed(2), m.Drawdown.CurrentDrawdownPct.Shift(2).StringFixed(2))
	if m.Leader != nil {
		fmt.Fprintf(tw, "Leader\t%s %s\n", m.Leader.Key, m.Leader.Profit.StringFixed(2))
	}
	if m.Worst != nil {
		fmt.Fprintf(tw, "Worst\t%s %s\n", m.Worst.Key, m.Worst.Profit.StringFixed(2))
	}
	for _, g := range m.Movers.Contributors {
		fmt.Fprintf(tw, "+ %s\t%s\n", g.Key, g.Profit.StringFixed(2))
	}
	for _, g := range m.Movers.Drains {
		fmt.Fprintf(tw, "- %s\t%s\n", g.Key, g.Profit.StringFixed(2))
	}
	tw.Flush()
}

func alertsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate alert rules against today's state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			stores, err := c.open(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			_, view, err := c.session(ctx, stores)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view.Alerts)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSEVERITY\tRULE\tTARGET\tTITLE")
			for _, a := range view.Alerts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.Rank, a.Severity, a.Rule, a.TargetRef, a.Title)
			}
			tw.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "%d alerts, active capital today %s\n", len(view.Alerts), view.Capital.Total.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func toggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <profile-id> <day>",
		Short: "Flip one day (1-based) of a profile's schedule between ACTIVE and RESTING",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[1])
			if err != nil || day < 1 {
				return fmt.Errorf("day must be a positive integer, got %q", args[1])
			}

			ctx := cmd.Context()
			stores, err := c.open(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			session, _, err := c.session(ctx, stores)
			if err != nil {
				return err
			}
			state, view, err := session.Toggle(ctx, args[0], day-1)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s day %d: %s\n", args[0], day, state)
			if view != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "active capital today %s\n", view.Capital.Total.StringFixed(2))
			}
			return nil
		},
	}
}

func reportCmd(c *cli) *cobra.Command {
	var (
		wf        windowFlags
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the Markdown report and CSV exports for a window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := wf.selector()
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = c.cfg.Server.OutputDir
			}

			ctx := cmd.Context()
			stores, err := c.open(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			ledger := app.Ledger(c.cfg.Feed, stores, nil, c.logger)
			gen := reporting.NewGenerator(
				ledger,
				stores.Directory,
				config.NewThresholdStore(c.cfg.Thresholds),
				app.MetricsOptions(c.cfg),
			).WithClock(func() time.Time { return now().UTC() })

			rep, err := gen.Generate(ctx, sel)
			if err != nil {
				return err
			}

			records, err := ledger.Trades(ctx, window.Resolve(sel, now()))
			if err != nil {
				return err
			}

			files := map[string]func(io.Writer) error{
				"REPORT.md": func(w io.Writer) error {
					_, err := io.WriteString(w, reporting.RenderMarkdown(rep))
					return err
				},
				"equity.csv": func(w io.Writer) error {
					_, err := io.WriteString(w, reporting.RenderEquityCSV(rep))
					return err
				},
				"alerts.csv": func(w io.Writer) error {
					_, err := io.WriteString(w, reporting.RenderAlertsCSV(rep.Alerts))
					return err
				},
				"trades.csv": func(w io.Writer) error {
					return feed.WriteCSV(w, records)
				},
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			for _, name := range []string{"REPORT.md", "equity.csv", "alerts.csv", "trades.csv"} {
				if err := writeFile(filepath.Join(outputDir, name), files[name]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(outputDir, name))
			}
			return nil
		},
	}
	wf.bind(cmd, "month-to-date")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default from config)")
	return cmd
}

func verifyCmd(c *cli) *cobra.Command {
	var (
		wf     windowFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Reconcile stored trades against the remote feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Feed.URL == "" {
				return errors.New("verify needs a remote feed (feed.url or FEED_URL)")
			}
			sel, err := wf.selector()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			stores, err := c.open(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			v := verification.NewVerifier(
				feed.NewStoreLedger(stores.Trades),
				app.Ledger(c.cfg.Feed, stores, nil, c.logger),
			)
			report, err := v.VerifyRange(ctx, window.Resolve(sel, now()))
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "window %s: %d trades, %d matched, %d divergent, %d missing locally, %d missing remotely\n",
					report.Window, report.TotalTrades, report.MatchedTrades, report.DivergentTrades,
					report.MissingLocal, report.MissingExternal)
				for _, r := range report.Results {
					fmt.Fprintf(out, "  %s %s\n", r.TradeID, r.Status)
					for _, d := range r.Divergences {
						fmt.Fprintf(out, "    %s: stored %s, feed %s\n", d.Field, d.Expected, d.Actual)
					}
				}
			}
			if !report.Clean() {
				return errLedgerMismatch
			}
			return nil
		},
	}
	wf.bind(cmd, "month-to-date")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// errLedgerMismatch makes verify exit non-zero when the ledgers disagree.
var errLedgerMismatch = errors.New("stored ledger does not match the feed")

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
