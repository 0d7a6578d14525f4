package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"SkyrocketScreener/internal/notifier"
	"SkyrocketScreener/internal/recorder"
	"SkyrocketScreener/internal/strategy"
)

func screenCmd(f *flags) *cobra.Command {
	var (
		withReport   bool
		withBacktest bool
		notify       bool
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen the universe once and write the candidates artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			tickers, err := a.tickers(ctx, f.tickers)
			if err != nil {
				return err
			}
			r, err := a.runner(cfg.Timeframe())
			if err != nil {
				return err
			}
			run, runErr := r.Run(ctx, tickers)
			if run != nil {
				printRun(cmd.OutOrStdout(), run)
			}
			if notify && cfg.TelegramEnabled() && run != nil {
				tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				if err := tn.SendWithRetry(ctx, notifier.FormatRun(run, cfg.Telegram.TopN), 3); err != nil {
					return fmt.Errorf("notify: %w", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			if run.Artifact == "" {
				return nil
			}
			if withReport {
				if err := generateReport(ctx, a, run.Artifact); err != nil {
					return err
				}
			}
			if withBacktest {
				return runBacktest(ctx, cmd.OutOrStdout(), a, run.Artifact, backtestFlags{})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withReport, "report", false, "generate the HTML report after screening")
	cmd.Flags().BoolVar(&withBacktest, "backtest", false, "backtest the candidates after screening")
	cmd.Flags().BoolVar(&notify, "notify", false, "send the result to Telegram")
	return cmd
}

func printRun(out io.Writer, run *recorder.Run) {
	fmt.Fprintf(out, "\nScreened %d tickers for %s in %s: %d candidates\n",
		run.Universe, run.Timeframe, run.Duration.Round(time.Millisecond), len(run.Candidates))
	if len(run.Candidates) == 0 {
		fmt.Fprintln(out, "No stocks passed the screening criteria.")
		return
	}
	maxScore := strategy.MaxScore(run.Timeframe)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTICKER\tPRICE\tSCORE\tCRITERIA")
	for i, c := range run.Candidates {
		price := "N/A"
		if c.Bundle.CurrentPrice.Valid {
			price = fmt.Sprintf("%.2f", c.Bundle.CurrentPrice.Float64)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%v\n", i+1, c.Ticker, price, c.Score, maxScore, c.Criteria)
	}
	tw.Flush()
	if run.Artifact != "" {
		fmt.Fprintf(out, "\nSaved to %s\n", run.Artifact)
	}
}
