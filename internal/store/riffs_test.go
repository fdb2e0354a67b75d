package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quillhq/vellum/internal/apperr"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
)

func TestRiffRoundTrip(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("essay")
	r.Body = "# Draft\n\nFirst paragraph.\n\nSecond paragraph."
	if err := s.Save(r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(r.Meta.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Meta.ArtifactType != "essay" || got.Meta.Integrated {
		t.Errorf("meta = %+v", got.Meta)
	}
	if strings.TrimRight(got.Body, "\n") != r.Body {
		t.Errorf("body = %q", got.Body)
	}
}

func TestUpdateBodyPreservesConcurrentComment(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("essay")
	r.Body = "Intro paragraph.\n\nDetails paragraph."
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}

	// A body rewrite is computed from this snapshot...
	newBody := "Rewritten intro.\n\nDetails paragraph.\n\nNew closing."

	// ...while a comment lands concurrently, after the snapshot was taken.
	if _, err := s.AddComment(r.Meta.ID, 1, "tighten this up"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	got, err := s.UpdateBody(r.Meta.ID, newBody, "rewrote intro")
	if err != nil {
		t.Fatalf("UpdateBody: %v", err)
	}

	// The comment survives even though the body predates it.
	if len(got.Meta.Comments) != 1 {
		t.Fatalf("comments = %d, want 1 (concurrent comment preserved)", len(got.Meta.Comments))
	}
	if !strings.HasPrefix(got.Body, "Rewritten intro.") {
		t.Errorf("body = %q", got.Body)
	}
	if len(got.Meta.History) != 1 || got.Meta.History[0].Change != "rewrote intro" {
		t.Errorf("history = %+v", got.Meta.History)
	}
}

func TestAddCommentAnchor(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("note")
	r.Body = "Alpha paragraph.\n\nBeta paragraph with detail.\n\nGamma paragraph."
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}

	c, err := s.AddComment(r.Meta.ID, 1, "check this")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.Anchor.ParagraphIndex != 1 {
		t.Errorf("paragraph index = %d", c.Anchor.ParagraphIndex)
	}
	if !strings.HasPrefix(c.Anchor.Snippet, "Beta paragraph") {
		t.Errorf("snippet = %q", c.Anchor.Snippet)
	}

	if _, err := s.AddComment(r.Meta.ID, 9, "out of range"); err == nil {
		t.Error("expected error for out-of-range paragraph")
	}
}

func TestCommentsReanchorWhenParagraphsShift(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("note")
	r.Body = "Alpha paragraph.\n\nBeta paragraph."
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddComment(r.Meta.ID, 1, "on beta"); err != nil {
		t.Fatal(err)
	}

	// A new opening paragraph shifts Beta from index 1 to index 2.
	got, err := s.UpdateBody(r.Meta.ID, "Brand new opener.\n\nAlpha paragraph.\n\nBeta paragraph.", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta.Comments[0].Anchor.ParagraphIndex != 2 {
		t.Errorf("re-anchored index = %d, want 2", got.Meta.Comments[0].Anchor.ParagraphIndex)
	}
}

func TestRiffRename(t *testing.T) {
	stores, filter, fs := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("essay")
	r.Body = "# Draft\n\nBody."
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddComment(r.Meta.ID, 0, "keep across rename"); err != nil {
		t.Fatal(err)
	}

	newID, err := s.Rename(r.Meta.ID, "Morning Pages")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if newID != r.Meta.ID+"-morning-pages" {
		t.Errorf("newID = %q", newID)
	}

	// Exactly one loadable riff, at the new id, metadata intact.
	if _, err := s.Load(r.Meta.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old id still loadable: %v", err)
	}
	got, err := s.Load(newID)
	if err != nil {
		t.Fatalf("Load new id: %v", err)
	}
	if len(got.Meta.Comments) != 1 || !strings.HasPrefix(got.Body, "# Draft") {
		t.Errorf("riff content lost across rename: %+v", got)
	}
	if fs.Exists(paths.RiffData(r.Meta.ID)) {
		t.Error("old file should be gone")
	}

	// Both halves of the transition are marked.
	for _, p := range []string{paths.RiffData(r.Meta.ID), paths.RiffData(newID)} {
		if !filter.IsSelfWrite(p) {
			t.Errorf("path %s not marked during rename", p)
		}
	}
}

func TestRiffRenameCollision(t *testing.T) {
	stores, _, fs := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("essay")
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}
	taken := paths.RenamedID(r.Meta.ID, "Taken")
	_ = fs.Write(paths.RiffData(taken), []byte("---\nid: "+taken+"\n---\nbody\n"))

	if _, err := s.Rename(r.Meta.ID, "Taken"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestIntegrate(t *testing.T) {
	stores, _, fs := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("essay")
	r.Body = "# Field Notes\n\nBody of the draft."
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}

	name, err := s.Integrate(r.Meta.ID, "")
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if name != "field-notes" {
		t.Errorf("note name = %q, want field-notes", name)
	}

	note, err := fs.Read(paths.NoteData(name))
	if err != nil {
		t.Fatalf("note missing: %v", err)
	}
	if !strings.Contains(string(note), "integrated from riffs/"+r.Meta.ID+".md") {
		t.Error("note missing provenance marker")
	}

	got, _ := s.Load(r.Meta.ID)
	if !got.Meta.Integrated {
		t.Error("riff should be flagged integrated")
	}

	if _, err := s.Integrate(r.Meta.ID, "field-notes"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second integrate err = %v, want ErrAlreadyExists", err)
	}
}

func TestRiffAtomicUpdate(t *testing.T) {
	stores, _, _ := newTestStores(t)
	s := stores.Riffs

	r := s.NewRiff("note")
	r.Body = "original"
	if err := s.Save(r); err != nil {
		t.Fatal(err)
	}

	got, err := s.AtomicUpdate(r.Meta.ID, func(r *models.Riff) error {
		r.Meta.Messages = append(r.Meta.Messages, models.RiffMessage{
			Role: "assistant", Timestamp: time.Now(), Content: "suggestion", Action: "revise",
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Meta.Messages) != 1 || got.Meta.Messages[0].Action != "revise" {
		t.Errorf("messages = %+v", got.Meta.Messages)
	}
}
