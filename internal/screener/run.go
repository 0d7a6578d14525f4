package screener

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/recorder"
	"SkyrocketScreener/internal/saver"
)

// Runner performs a full screening run: screen, write the artifact, record history.
type Runner struct {
	Screener  *Screener
	Saver     saver.Saver // nil skips the artifact
	OutputDir string
	Recorder  recorder.Recorder // nil skips history
	Metrics   *metrics.Registry

	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run screens tickers and persists the result. A cancelled run still writes and records
// what it collected; the context error is returned alongside the run. Artifact failures
// are returned, history failures only logged.
func (r *Runner) Run(ctx context.Context, tickers []string) (*recorder.Run, error) {
	cfg := r.Screener.Config()
	run := &recorder.Run{
		ID:        uuid.NewString(),
		StartedAt: r.now(),
		Timeframe: cfg.Timeframe,
		MinPrice:  cfg.MinPrice,
		MaxPrice:  cfg.MaxPrice,
		Universe:  len(tickers),
		Status:    recorder.StatusOK,
	}
	log.Info().Str("run", run.ID).Str("timeframe", string(cfg.Timeframe)).
		Float64("min_price", cfg.MinPrice).Float64("max_price", cfg.MaxPrice).
		Int("tickers", len(tickers)).Msg("screen started")

	cands, err := r.Screener.Screen(ctx, tickers)
	run.Candidates = cands
	run.Duration = r.now().Sub(run.StartedAt)
	if err != nil {
		run.Status = recorder.StatusCancelled
	}

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	if r.Saver != nil {
		path, serr := saver.Write(r.Saver, r.OutputDir, cfg.Timeframe, cands)
		if serr != nil {
			errs = append(errs, serr)
		} else if path != "" {
			run.Artifact = path
			log.Info().Str("path", path).Int("candidates", len(cands)).Msg("candidates saved")
		} else {
			log.Info().Msg("no stocks passed the screening criteria")
		}
	}
	if r.Recorder != nil {
		if rerr := r.Recorder.RecordRun(run); rerr != nil {
			log.Warn().Err(rerr).Str("run", run.ID).Msg("could not record run")
		}
	}
	r.Metrics.ObserveRun(run.Duration, len(cands))
	return run, errors.Join(errs...)
}
