package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"SkyrocketScreener/internal/report"
	"SkyrocketScreener/internal/saver"
)

func reportCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "report [artifact]",
		Short: "Render an HTML report for a candidates artifact",
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
			return generateReport(cmd.Context(), a, artifact)
		},
	}
}

func generateReport(ctx context.Context, a *app, artifact string) error {
	pr, err := a.cfg.PriceRange()
	if err != nil {
		return err
	}
	out, err := report.Generate(ctx, a.adapter, artifact, report.Options{
		Timeframe: a.cfg.Timeframe(),
		MinPrice:  pr.Min,
		MaxPrice:  pr.Max,
		Delay:     a.cfg.Screen.RequestDelay,
		Now:       time.Now(),
	})
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	fmt.Println("HTML report generated:", out)
	return nil
}
