// Package scheduler runs screens on a cron schedule and answers bot commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/notifier"
	"SkyrocketScreener/internal/recorder"
	"SkyrocketScreener/internal/strategy"
)

// ScreenFunc performs one full screening run for a timeframe.
type ScreenFunc func(ctx context.Context, tf model.Timeframe) (*recorder.Run, error)

// Sender delivers notification text.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

// Scheduler manages cron tasks and manual triggers. At most one screen runs at a time.
type Scheduler struct {
	Cron      *cron.Cron
	Screen    ScreenFunc
	Notifier  Sender // nil disables notifications
	Recorder  recorder.Recorder
	Timeframe model.Timeframe
	TopN      int
	Ctx       context.Context

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, screen ScreenFunc, n Sender, rec recorder.Recorder, tf model.Timeframe, topN int) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Screen:    screen,
		Notifier:  n,
		Recorder:  rec,
		Timeframe: tf,
		TopN:      topN,
		Ctx:       ctx,
	}
}

// RegisterAll registers the recurring screen.
func (s *Scheduler) RegisterAll(screenCron string) error {
	if _, err := s.Cron.AddFunc(screenCron, func() { s.RunScreenNow(s.Timeframe) }); err != nil {
		return fmt.Errorf("register screen task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for an in-flight screen.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

// Wait blocks until background screens started by commands finish.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunScreenNow runs a screen synchronously. It reports false if another screen is running.
func (s *Scheduler) RunScreenNow(tf model.Timeframe) bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Str("timeframe", string(tf)).Msg("screen already running, skipped")
		return false
	}
	defer s.running.Store(false)

	log.Info().Str("timeframe", string(tf)).Msg("running scheduled screen")
	run, err := s.Screen(s.Ctx, tf)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("screen failed")
		s.trySend(fmt.Sprintf("❌ Screen %s failed: %v", tf, err))
		if run == nil {
			return true
		}
	}
	if run != nil {
		s.trySend(notifier.FormatRun(run, s.TopN))
	}
	return true
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/screen":
		tf := s.Timeframe
		if len(fields) > 1 {
			tf = model.Timeframe(fields[1])
		}
		if _, err := strategy.Lookup(tf); err != nil {
			return fmt.Sprintf("Unknown timeframe %q.\n\n%s", tf, notifier.FormatHelp())
		}
		if s.running.Load() {
			return "A screen is already running, try again later."
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunScreenNow(tf)
		}()
		return fmt.Sprintf("Screening started for %s.", tf)
	case "/last":
		run, err := s.Recorder.LastRun(s.TopN)
		if errors.Is(err, recorder.ErrNoRuns) {
			return "No screening runs recorded yet."
		}
		if err != nil {
			log.Error().Err(err).Msg("load last run")
			return "Could not load the last run."
		}
		return notifier.FormatRun(run, s.TopN)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Info().Msg("notifications disabled, result not sent")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
