package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
)

func newTestService(t *testing.T, dir string) (*Service, context.CancelFunc) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewService(dir, mapset.NewSet(".jpg", ".png", ".gif"), logger)
	svc.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)
	time.Sleep(100 * time.Millisecond) // let watcher initialize

	return svc, cancel
}

func waitSignal(t *testing.T, ch <-chan struct{}, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImageCreateQueuesRescan(t *testing.T) {
	dir := t.TempDir()
	svc, cancel := newTestService(t, dir)
	defer cancel()

	writeFile(t, dir, "board.jpg")

	if !waitSignal(t, svc.Rescan(), time.Second) {
		t.Error("expected a rescan signal after creating an image")
	}
}

func TestImageRemoveQueuesRescan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "board.jpg")

	svc, cancel := newTestService(t, dir)
	defer cancel()

	if err := os.Remove(filepath.Join(dir, "board.jpg")); err != nil {
		t.Fatal(err)
	}

	if !waitSignal(t, svc.Rescan(), time.Second) {
		t.Error("expected a rescan signal after removing an image")
	}
}

func TestMultipleChangesCoalesce(t *testing.T) {
	dir := t.TempDir()
	svc, cancel := newTestService(t, dir)
	defer cancel()

	writeFile(t, dir, "a.jpg")
	writeFile(t, dir, "b.png")
	writeFile(t, dir, "c.gif")

	if !waitSignal(t, svc.Rescan(), time.Second) {
		t.Fatal("expected a rescan signal after creating images")
	}
	if waitSignal(t, svc.Rescan(), 200*time.Millisecond) {
		t.Error("expected a burst of changes to coalesce into one signal")
	}
}

func TestUnsupportedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	svc, cancel := newTestService(t, dir)
	defer cancel()

	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, ".partial.jpg")

	if waitSignal(t, svc.Rescan(), 300*time.Millisecond) {
		t.Error("expected no rescan signal for unsupported or hidden files")
	}
}

func TestRelevant(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewService("/images", mapset.NewSet(".jpg", ".png"), logger)

	cases := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"supported jpg", "/images/a.jpg", fsnotify.Create, true},
		{"uppercase extension", "/images/B.JPG", fsnotify.Create, true},
		{"remove", "/images/a.jpg", fsnotify.Remove, true},
		{"write", "/images/a.jpg", fsnotify.Write, true},
		{"chmod only", "/images/a.jpg", fsnotify.Chmod, false},
		{"unsupported", "/images/notes.txt", fsnotify.Create, false},
		{"hidden with supported extension", "/images/.partial.jpg", fsnotify.Create, false},
		{"download temp file", "/images/.a.jpg.12345", fsnotify.Create, false},
		{"no extension", "/images/README", fsnotify.Create, false},
	}
	for _, tc := range cases {
		ev := fsnotify.Event{Name: tc.path, Op: tc.op}
		if got := svc.relevant(ev); got != tc.want {
			t.Errorf("%s: relevant(%v %q) = %v, want %v", tc.name, tc.op, tc.path, got, tc.want)
		}
	}
}
