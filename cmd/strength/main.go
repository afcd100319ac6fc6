package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"StrengthSentinel/internal/config"
	"StrengthSentinel/internal/market"
	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/notifier"
	"StrengthSentinel/internal/recorder"
	"StrengthSentinel/internal/scheduler"
	"StrengthSentinel/internal/tracker"
)

var version = "0.1.0"

// errFailedResult makes the process exit 1 after the failure has been printed.
var errFailedResult = errors.New("analysis failed")

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "strength",
		Short:         "Relative strength of a security against its market benchmark",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: $CONFIG_PATH or configs/config.yaml)")

	load := func() (*config.Config, error) {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		path := cfgPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "configs/config.yaml"
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		setupLogging(cfg)
		return cfg, nil
	}

	rootCmd.AddCommand(analyzeCmd(load))
	rootCmd.AddCommand(indicatorsCmd(load))
	rootCmd.AddCommand(historyCmd(load))
	rootCmd.AddCommand(watchCmd(load))
	rootCmd.AddCommand(benchmarksCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailedResult) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

type loader func() (*config.Config, error)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strength version %s\n", version)
		},
	}
}

func benchmarksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "benchmarks",
		Short: "List known benchmark indices and their aliases",
		Run: func(cmd *cobra.Command, args []string) {
			for _, b := range market.Benchmarks {
				fmt.Printf("%-8s %-10s %-30s %s\n", b.ID, b.Segment, b.Alias, b.Name)
			}
		},
	}
}

func parseDate(flag, v string) (model.Date, error) {
	if v == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzeCmd(load loader) *cobra.Command {
	var (
		benchmark string
		start     string
		end       string
		asJSON    bool
		mock      bool
		recent    int
	)

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Compute the relative strength of a security",
		Long: `Compare a security against its market benchmark over a date window.

The benchmark defaults by market: Shanghai and Shenzhen codes use their
composite index, 688xxx the Sci-Tech 50, .HK listings the Hang Seng and
everything else the S&P 500.

Example:
  strength analyze 600519
  strength analyze AAPL --benchmark nasdaq --start 2024-01-02 --end 2024-03-29
  strength analyze 0700.HK --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			req := model.Request{Symbol: args[0]}
			if benchmark != "" {
				req.Benchmark = market.LookupBenchmark(benchmark).ID
			}
			if req.Start, err = parseDate("start", start); err != nil {
				return err
			}
			if req.End, err = parseDate("end", end); err != nil {
				return err
			}

			a, err := newApp(cfg, mock)
			if err != nil {
				return err
			}
			defer a.Close()
			if recent > 0 {
				a.service.RecentRows = recent
			}

			out := a.service.Analyze(cmd.Context(), req, recorder.SourceCLI)
			if asJSON {
				if err := printJSON(out.Result); err != nil {
					return err
				}
			} else if out.OK() {
				fmt.Println(notifier.PlainText(notifier.FormatReport(out.Bundle)))
				fmt.Println(notifier.PlainText(notifier.FormatRecent(out.Bundle)))
			} else {
				fmt.Println(notifier.PlainText(notifier.FormatFailure(req.Symbol, out.Failure)))
			}
			if !out.OK() {
				return errFailedResult
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&benchmark, "benchmark", "b", "", "Benchmark code or alias (default: by market)")
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD (default: end minus analysis.window_days)")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&mock, "mock", false, "Use generated prices instead of live providers")
	cmd.Flags().IntVar(&recent, "recent", 0, "Trailing rows in the report (default: analysis.recent_rows)")
	return cmd
}

func indicatorsCmd(load loader) *cobra.Command {
	var (
		start  string
		end    string
		asJSON bool
		mock   bool
	)

	cmd := &cobra.Command{
		Use:   "indicators <symbol>",
		Short: "Show moving averages, RSI, MACD, Bollinger and KDJ for a security",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			req := model.Request{Symbol: args[0]}
			if req.Start, err = parseDate("start", start); err != nil {
				return err
			}
			if req.End, err = parseDate("end", end); err != nil {
				return err
			}

			a, err := newApp(cfg, mock)
			if err != nil {
				return err
			}
			defer a.Close()

			ind, f := a.service.Indicators(cmd.Context(), req)
			if f != nil {
				if asJSON {
					_ = printJSON(model.Failed(f))
				} else {
					fmt.Println(notifier.PlainText(notifier.FormatFailure(req.Symbol, f)))
				}
				return errFailedResult
			}
			if asJSON {
				return printJSON(ind)
			}
			fmt.Println(notifier.PlainText(notifier.FormatIndicators(ind)))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the indicators as JSON")
	cmd.Flags().BoolVar(&mock, "mock", false, "Use generated prices instead of live providers")
	return cmd
}

func historyCmd(load loader) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <symbol>",
		Short: "List recorded analyses of a symbol, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer rec.Close()

			rows, err := rec.History(args[0], limit)
			if err != nil {
				return err
			}
			fmt.Println(notifier.PlainText(notifier.FormatHistory(args[0], rows)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows")
	return cmd
}

func watchCmd(load loader) *cobra.Command {
	var (
		runNow bool
		mock   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyze the watchlist on a schedule and push reports to Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateWatch(); err != nil {
				return err
			}
			log.Info().Str("version", version).Strs("symbols", cfg.Watch.Symbols).Msg("StrengthSentinel starting")

			a, err := newApp(cfg, mock)
			if err != nil {
				return err
			}
			defer a.Close()

			tm, err := tracker.NewManager(cfg.Watch.StateFile)
			if err != nil {
				return fmt.Errorf("init watch state: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var tn *notifier.TelegramNotifier
			var sender scheduler.Sender
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
				sender = tn
			} else {
				log.Warn().Msg("telegram not configured, reports are only logged")
			}

			sched := scheduler.NewScheduler(ctx, a.service, tm, sender, a.recorder, cfg.Watch.Symbols)
			sched.NotifyOnChangeOnly = cfg.Watch.NotifyOnChangeOnly
			if err := sched.RegisterAll(cfg.Watch.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}

			if runNow || cfg.Watch.RunOnStart {
				log.Info().Msg("running watch task on start")
				go sched.RunWatchNow()
			}

			log.Info().Str("cron", cfg.Watch.Cron).Msg("StrengthSentinel is running, press Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
				log.Info().Msg("shutdown signal received, stopping")
			case <-ctx.Done():
			}
			cancel()
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run the watchlist once at startup")
	cmd.Flags().BoolVar(&mock, "mock", false, "Use generated prices instead of live providers")
	return cmd
}
