// Package scheduler runs periodic trigger checks. It is the canonical
// concurrent background writer: every trigger mutation goes through the
// store's atomic read-merge-write path, so scheduler bookkeeping never
// clobbers an edit the user made while a check was in flight.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/store"
)

// DefaultTick is how often the scheduler scans for due triggers.
const DefaultTick = time.Minute

// Evaluator decides whether a due trigger fires. Implementations call
// out to a model with the trigger's prompt; the scheduler only cares
// about the verdict.
type Evaluator interface {
	Evaluate(ctx context.Context, tr *models.Trigger) (fired bool, result, reasoning string, err error)
}

// ManualEvaluator never fires. It keeps the scheduler's bookkeeping
// running in deployments where trigger evaluation happens out of process.
type ManualEvaluator struct{}

// Evaluate reports the trigger as not fired.
func (ManualEvaluator) Evaluate(context.Context, *models.Trigger) (bool, string, string, error) {
	return false, "", "", nil
}

// Scheduler periodically scans the vault's triggers and evaluates the
// ones whose interval has elapsed.
type Scheduler struct {
	triggers *store.TriggerStore
	eval     Evaluator
	logger   *slog.Logger

	// Tick overrides the scan interval; zero means DefaultTick.
	Tick time.Duration
	// OnUpdated, if set, is called with a trigger's id after its file
	// changed. Wired to search-index refresh.
	OnUpdated func(id string)

	now func() time.Time
}

// New creates a scheduler over the given trigger store.
func New(triggers *store.TriggerStore, eval Evaluator, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		triggers: triggers,
		eval:     eval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run scans immediately, then on every tick, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := s.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	s.pass(ctx)
	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.pass(ctx)
		}
	}
}

// pass checks every due trigger once. A failing trigger is logged and
// skipped; it never stops the scan.
func (s *Scheduler) pass(ctx context.Context) {
	triggers, err := s.triggers.List()
	if err != nil {
		s.logger.Error("scheduler: list triggers", slog.String("error", err.Error()))
		return
	}

	for _, tr := range triggers {
		if ctx.Err() != nil {
			return
		}
		if !tr.Enabled || !s.due(tr) {
			continue
		}
		if err := s.check(ctx, tr); err != nil {
			s.logger.Error("scheduler: check failed",
				slog.String("id", tr.ID), slog.String("error", err.Error()))
		}
	}
}

// due reports whether the trigger's interval has elapsed since its last
// check. A never-checked trigger is due immediately.
func (s *Scheduler) due(tr *models.Trigger) bool {
	if tr.IntervalMinutes <= 0 {
		return false
	}
	if tr.LastChecked == nil {
		return true
	}
	return s.now().Sub(*tr.LastChecked) >= time.Duration(tr.IntervalMinutes)*time.Minute
}

func (s *Scheduler) check(ctx context.Context, tr *models.Trigger) error {
	fired, result, reasoning, evalErr := s.eval.Evaluate(ctx, tr)

	now := s.now()
	_, err := s.triggers.AtomicUpdate(tr.ID, func(tr *models.Trigger) error {
		tr.LastChecked = &now
		if evalErr != nil || !fired {
			return nil
		}
		tr.LastTriggered = &now
		tr.History = append(tr.History, models.TriggerEvent{
			Timestamp: now,
			Result:    result,
			Reasoning: reasoning,
		})
		return nil
	})
	if err != nil {
		return err
	}
	if s.OnUpdated != nil {
		s.OnUpdated(tr.ID)
	}

	if evalErr != nil {
		return evalErr
	}
	if fired {
		s.logger.Info("scheduler: trigger fired",
			slog.String("id", tr.ID), slog.String("title", tr.Title))
	}
	return nil
}
