package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SkyrocketScreener/internal/backtest"
	"SkyrocketScreener/internal/saver"
)

type backtestFlags struct {
	start      string
	end        string
	investment float64
	benchmark  string
	valuesOut  string
}

func backtestCmd(f *flags) *cobra.Command {
	var bf backtestFlags
	cmd := &cobra.Command{
		Use:   "backtest [artifact]",
		Short: "Backtest an equal-weight portfolio of screened candidates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			artifact := saver.Path(cfg.Screen.OutputDir, cfg.Timeframe(), saver.New(cfg.Screen.Format))
			if len(args) == 1 {
				artifact = args[0]
			}
			return runBacktest(cmd.Context(), cmd.OutOrStdout(), a, artifact, bf)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&bf.start, "start", "", "start date YYYY-MM-DD (default 30 days ago)")
	fl.StringVar(&bf.end, "end", "", "end date YYYY-MM-DD (default today)")
	fl.Float64Var(&bf.investment, "investment", backtest.DefaultInvestment, "dollars per stock")
	fl.StringVar(&bf.benchmark, "benchmark", backtest.DefaultBenchmark, "benchmark symbol")
	fl.StringVar(&bf.valuesOut, "values-out", "", "write the daily value curve to this CSV")
	return cmd
}

func runBacktest(ctx context.Context, out io.Writer, a *app, artifact string, bf backtestFlags) error {
	tickers, err := saver.ReadTickers(artifact)
	if err != nil {
		return fmt.Errorf("read results %s: %w", artifact, err)
	}
	now := time.Now()
	start, end, err := backtest.ParseDates(bf.start, bf.end, now)
	if err != nil {
		return err
	}
	benchmark := strings.ToUpper(bf.benchmark)
	if benchmark == "" {
		benchmark = backtest.DefaultBenchmark
	}
	res, err := backtest.Run(ctx, a.adapter, tickers, backtest.Config{
		Start:      start,
		End:        end,
		Investment: bf.investment,
		Benchmark:  benchmark,
	}, now)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	backtest.PrintSummary(out, res, benchmark)
	if bf.valuesOut != "" {
		if err := backtest.WriteValues(res, bf.valuesOut); err != nil {
			return err
		}
		log.Info().Str("path", bf.valuesOut).Msg("value curve saved")
	}
	return nil
}
