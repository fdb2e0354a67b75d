package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/store"
	"github.com/quillhq/vellum/internal/testutil"
)

type fakeEvaluator struct {
	fired     bool
	result    string
	reasoning string
	err       error
	calls     int
}

func (f *fakeEvaluator) Evaluate(context.Context, *models.Trigger) (bool, string, string, error) {
	f.calls++
	return f.fired, f.result, f.reasoning, f.err
}

func newTestScheduler(t *testing.T, eval Evaluator) (*Scheduler, *store.TriggerStore) {
	t.Helper()
	stores, _, _ := testutil.Stores(t)
	return New(stores.Triggers, eval, testutil.Logger()), stores.Triggers
}

func saveTrigger(t *testing.T, triggers *store.TriggerStore, enabled bool, interval int) *models.Trigger {
	t.Helper()
	tr := triggers.NewTrigger("Check inbox", "sonnet", "anything new?", interval)
	tr.Enabled = enabled
	if err := triggers.Save(tr); err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestPassFiresDueTrigger(t *testing.T) {
	eval := &fakeEvaluator{fired: true, result: "2 new items", reasoning: "inbox grew"}
	s, triggers := newTestScheduler(t, eval)
	tr := saveTrigger(t, triggers, true, 60)

	var updated []string
	s.OnUpdated = func(id string) { updated = append(updated, id) }

	s.pass(context.Background())

	if eval.calls != 1 {
		t.Fatalf("evaluator calls = %d, want 1", eval.calls)
	}
	got, err := triggers.Load(tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastChecked == nil || got.LastTriggered == nil {
		t.Fatalf("bookkeeping missing: %+v", got)
	}
	if len(got.History) != 1 || got.History[0].Result != "2 new items" {
		t.Errorf("history = %+v", got.History)
	}
	if len(updated) != 1 || updated[0] != tr.ID {
		t.Errorf("OnUpdated calls = %v", updated)
	}
}

func TestPassSkipsDisabledAndNotDue(t *testing.T) {
	eval := &fakeEvaluator{fired: true}
	s, triggers := newTestScheduler(t, eval)

	saveTrigger(t, triggers, false, 60) // disabled
	recent := saveTrigger(t, triggers, true, 60)
	now := time.Now()
	if _, err := triggers.AtomicUpdate(recent.ID, func(tr *models.Trigger) error {
		tr.LastChecked = &now
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	s.pass(context.Background())
	if eval.calls != 0 {
		t.Errorf("evaluator calls = %d, want 0", eval.calls)
	}
}

func TestPassChecksWithoutFiring(t *testing.T) {
	eval := &fakeEvaluator{fired: false}
	s, triggers := newTestScheduler(t, eval)
	tr := saveTrigger(t, triggers, true, 60)

	s.pass(context.Background())

	got, _ := triggers.Load(tr.ID)
	if got.LastChecked == nil {
		t.Error("LastChecked should be set after a non-firing check")
	}
	if got.LastTriggered != nil || len(got.History) != 0 {
		t.Errorf("non-firing check wrote firing state: %+v", got)
	}
}

func TestDueUsesInterval(t *testing.T) {
	s, triggers := newTestScheduler(t, ManualEvaluator{})
	tr := saveTrigger(t, triggers, true, 30)

	base := time.Now()
	s.now = func() time.Time { return base }

	if !s.due(tr) {
		t.Error("never-checked trigger should be due")
	}

	checked := base.Add(-10 * time.Minute)
	tr.LastChecked = &checked
	if s.due(tr) {
		t.Error("trigger checked 10m ago with 30m interval should not be due")
	}

	checked = base.Add(-45 * time.Minute)
	if !s.due(tr) {
		t.Error("trigger checked 45m ago with 30m interval should be due")
	}
}

func TestEvaluatorFailureIsolated(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("model unavailable")}
	s, triggers := newTestScheduler(t, eval)
	tr := saveTrigger(t, triggers, true, 60)

	s.pass(context.Background())

	// The failure still advances LastChecked so a broken evaluator does
	// not spin on every tick.
	got, _ := triggers.Load(tr.ID)
	if got.LastChecked == nil {
		t.Error("LastChecked should advance on evaluator failure")
	}
	if len(got.History) != 0 {
		t.Errorf("failed evaluation wrote history: %+v", got.History)
	}
}
