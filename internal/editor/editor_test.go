package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/sitedog/preview/internal/apperr"
)

func TestApplyEdits_OffsetsReferToOriginal(t *testing.T) {
	text := "abc\ndef\n"
	edits := []TextEdit{
		{Offset: 7, NewText: "\nY"},
		{Offset: 3, NewText: "\nX"},
	}
	got, err := ApplyEdits(text, edits)
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc\nX\ndef\nY\n" {
		t.Errorf("got %q", got)
	}
}

func TestApplyEdits_OutOfRangeRejectsBatch(t *testing.T) {
	text := "abc"
	got, err := ApplyEdits(text, []TextEdit{{Offset: 1, NewText: "x"}, {Offset: 10, NewText: "y"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != text {
		t.Errorf("text changed on failure: %q", got)
	}
}

func TestPositionAt(t *testing.T) {
	text := "one\ntwo\nthree"
	tests := []struct {
		off  int
		want Position
	}{
		{0, Position{0, 0}},
		{3, Position{0, 3}},
		{4, Position{1, 0}},
		{9, Position{2, 1}},
		{100, Position{2, 5}},
	}
	for _, tt := range tests {
		if got := PositionAt(text, tt.off); got != tt.want {
			t.Errorf("PositionAt(%d) = %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestLineEnd(t *testing.T) {
	end, eol := LineEnd("ab\r\ncd", 1)
	if end != 2 || eol != "\r\n" {
		t.Errorf("crlf: end=%d eol=%q", end, eol)
	}
	end, eol = LineEnd("ab\ncd", 4)
	if end != 5 || eol != "" {
		t.Errorf("last line: end=%d eol=%q", end, eol)
	}
}

func TestDocument_FileName(t *testing.T) {
	d := Document{Path: "sites/blog/sitedog.yml"}
	if d.FileName() != "sitedog.yml" {
		t.Errorf("FileName = %q", d.FileName())
	}
}

func TestBuffers_Lifecycle(t *testing.T) {
	b := NewBuffers()
	if b.Active() != nil {
		t.Fatal("expected no active document")
	}

	doc := b.Open("a/sitedog.yml", "x: 1\n")
	if b.Active() != doc {
		t.Fatal("opened document should be active")
	}
	if doc.Version != 1 || doc.Dirty {
		t.Errorf("fresh doc = %+v", doc)
	}

	if _, err := b.Update("a/sitedog.yml", "x: 2\n"); err != nil {
		t.Fatal(err)
	}
	if doc.Version != 2 || !doc.Dirty {
		t.Errorf("after update = %+v", doc)
	}

	if b.Sync("a/sitedog.yml", "x: 3\n") {
		t.Error("dirty buffer must not sync from disk")
	}
	b.MarkSaved("a/sitedog.yml")
	if !b.Sync("a/sitedog.yml", "x: 3\n") {
		t.Error("clean buffer should sync from disk")
	}

	b.Open("other.yml", "")
	if _, err := b.Activate("a/sitedog.yml"); err != nil {
		t.Fatal(err)
	}
	if b.Active().Path != "a/sitedog.yml" {
		t.Errorf("active = %s", b.Active().Path)
	}

	b.Close("a/sitedog.yml")
	if b.Active() != nil {
		t.Error("closing the active document should clear it")
	}
	if _, err := b.Get("a/sitedog.yml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after close: %v", err)
	}
}

func TestBuffers_ApplyEditsStale(t *testing.T) {
	b := NewBuffers()
	b.Open("sitedog.yml", "abc")
	if _, err := b.Update("sitedog.yml", "abcd"); err != nil {
		t.Fatal(err)
	}
	_, err := b.ApplyEdits("sitedog.yml", 1, []TextEdit{{Offset: 0, NewText: "x"}})
	if !errors.Is(err, apperr.ErrStaleDocument) {
		t.Fatalf("expected stale error, got %v", err)
	}
	doc, err := b.ApplyEdits("sitedog.yml", 2, []TextEdit{{Offset: 0, NewText: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "xabcd" || doc.Version != 3 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestAnswerAndRecorder(t *testing.T) {
	ok, err := Answer(true).Confirm(context.Background(), "?", "Yes", "No")
	if err != nil || !ok {
		t.Errorf("Answer(true) = %v, %v", ok, err)
	}

	var r Recorder
	n := Fanout(&r, nil)
	Info(n, "hello")
	Error(n, "boom")
	msgs := r.Messages()
	if len(msgs) != 2 || msgs[1].Severity != SeverityError {
		t.Errorf("messages = %+v", msgs)
	}
	if last, _ := r.Last(); last.Text != "boom" {
		t.Errorf("last = %+v", last)
	}
}
