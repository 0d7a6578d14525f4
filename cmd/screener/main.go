package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SkyrocketScreener/internal/config"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// flags holds command-line overrides applied on top of the loaded config.
type flags struct {
	configPath string
	timeframe  string
	preset     string
	minPrice   float64
	maxPrice   float64
	format     string
	outputDir  string
	quick      float64
	reuse      bool
	tickers    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "screener",
		Short:         "Retail stock screener for short-horizon skyrocket candidates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "config file path")
	pf.StringVar(&f.timeframe, "timeframe", "", "timeframe: 24_hours, 3_days, 7_days, 2_weeks, 1_month")
	pf.StringVar(&f.preset, "preset", "", "price preset name")
	pf.Float64Var(&f.minPrice, "min-price", 0, "minimum price, inclusive (overrides the preset)")
	pf.Float64Var(&f.maxPrice, "max-price", 0, "maximum price, exclusive (overrides the preset)")
	pf.StringVar(&f.format, "format", "", "artifact format: csv, json, parquet")
	pf.StringVar(&f.outputDir, "output-dir", "", "artifact directory")
	pf.Float64Var(&f.quick, "quick", 0, "screen a random fraction of the universe, e.g. 0.1")
	pf.BoolVar(&f.reuse, "reuse-sample", false, "reuse the saved quick-mode sample")
	pf.StringVar(&f.tickers, "tickers", "", "semicolon separated symbols instead of the universe")
	pf.StringVar(&f.logLevel, "log-level", "", "log level")

	root.AddCommand(screenCmd(f))
	root.AddCommand(backtestCmd(f))
	root.AddCommand(reportCmd(f))
	root.AddCommand(scheduleCmd(f))
	return root
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	fl := cmd.Flags()
	if f.timeframe != "" {
		cfg.Screen.Timeframe = f.timeframe
	}
	if f.preset != "" {
		cfg.Screen.PricePreset = f.preset
	}
	if fl.Changed("min-price") {
		cfg.Screen.MinPrice = &f.minPrice
	}
	if fl.Changed("max-price") {
		cfg.Screen.MaxPrice = &f.maxPrice
	}
	if f.format != "" {
		cfg.Screen.Format = f.format
	}
	if f.outputDir != "" {
		cfg.Screen.OutputDir = f.outputDir
	}
	if fl.Changed("quick") {
		cfg.Screen.QuickFraction = f.quick
	}
	if f.reuse {
		cfg.Screen.ReuseSample = true
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
