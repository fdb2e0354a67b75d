package store

import (
	"testing"
	"time"

	"github.com/quillhq/vellum/internal/models"
)

func TestTriggerRoundTripAndList(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Triggers

	a := s.NewTrigger("Check inbox", "haiku", "any new mail?", 30)
	a.Enabled = true
	b := s.NewTrigger("Backup reminder", "haiku", "time to back up?", 1440)
	for _, tr := range []*models.Trigger{a, b} {
		if err := s.Save(tr); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.Load(a.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Enabled || got.IntervalMinutes != 30 || got.TriggerPrompt != "any new mail?" {
		t.Errorf("trigger = %+v", got)
	}

	all, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("list = %d triggers, want 2", len(all))
	}
}

func TestTriggerAtomicUpdateBookkeeping(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Triggers

	tr := s.NewTrigger("Watch the kettle", "haiku", "is it boiling?", 5)
	tr.Enabled = true
	if err := s.Save(tr); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	got, err := s.AtomicUpdate(tr.ID, func(tr *models.Trigger) error {
		tr.LastChecked = &now
		tr.LastTriggered = &now
		tr.History = append(tr.History, models.TriggerEvent{
			Timestamp: now, Result: "fired", Reasoning: "steam observed",
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.LastChecked == nil || got.LastTriggered == nil || len(got.History) != 1 {
		t.Errorf("bookkeeping not applied: %+v", got)
	}

	reloaded, _ := s.Load(tr.ID)
	if len(reloaded.History) != 1 || reloaded.History[0].Result != "fired" {
		t.Errorf("history not persisted: %+v", reloaded.History)
	}
}

func TestTriggerRename(t *testing.T) {
	stores, _, fs := newTestStores(t)
	s := stores.Triggers

	tr := s.NewTrigger("Old Name", "haiku", "p", 10)
	if err := s.Save(tr); err != nil {
		t.Fatal(err)
	}

	newID, err := s.Rename(tr.ID, "Fresh Name")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if newID == tr.ID {
		t.Fatal("expected a new id")
	}
	if fs.Exists("triggers/" + tr.ID + ".yaml") {
		t.Error("old file should be gone")
	}
	got, err := s.Load(newID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Fresh Name" {
		t.Errorf("title = %q", got.Title)
	}
}
