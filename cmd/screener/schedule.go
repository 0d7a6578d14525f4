package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/notifier"
	"SkyrocketScreener/internal/recorder"
	"SkyrocketScreener/internal/scheduler"
)

func scheduleCmd(f *flags) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run screens on the configured cron and answer Telegram commands",
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

			screen := func(ctx context.Context, tf model.Timeframe) (*recorder.Run, error) {
				tickers, err := a.tickers(ctx, f.tickers)
				if err != nil {
					return nil, err
				}
				r, err := a.runner(tf)
				if err != nil {
					return nil, err
				}
				return r.Run(ctx, tickers)
			}

			// Init Telegram notifier
			var (
				sender scheduler.Sender
				tn     *notifier.TelegramNotifier
			)
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				sender = tn
			} else {
				log.Warn().Msg("telegram not configured, results are only saved")
			}

			sched := scheduler.NewScheduler(ctx, screen, sender, a.recorder, cfg.Timeframe(), cfg.Telegram.TopN)
			if err := sched.RegisterAll(cfg.Schedule.ScreenCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}

			if cfg.Metrics.Addr != "" {
				srv := serveMetrics(cfg.Metrics.Addr, a.metrics.Handler())
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if runOnStart {
				log.Info().Msg("run on start enabled, screening now")
				go sched.RunScreenNow(cfg.Timeframe())
			}

			log.Info().Str("cron", cfg.Schedule.ScreenCron).Msg("screener is running, press Ctrl+C to stop")
			<-ctx.Done()
			log.Info().Msg("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", envOr("RUN_ON_START", "") == "true", "screen immediately on start")
	return cmd
}

func serveMetrics(addr string, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
