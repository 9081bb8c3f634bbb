// Package watcher raises rescan signals when the image directory
// changes on disk, coalescing bursts of filesystem events into a
// single notification.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
)

// Service watches the image directory for added, removed, and renamed
// image files. Changes are debounced and delivered on the Rescan
// channel.
type Service struct {
	dir      string
	formats  mapset.Set[string]
	logger   *slog.Logger
	debounce time.Duration
	rescan   chan struct{}
}

// NewService creates a watcher for dir. Only events for visible files
// with one of the supported extensions raise a rescan.
func NewService(dir string, formats mapset.Set[string], logger *slog.Logger) *Service {
	return &Service{
		dir:      dir,
		formats:  formats,
		logger:   logger.With("component", "fs-watcher"),
		debounce: 1 * time.Second,
		rescan:   make(chan struct{}, 1),
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Rescan returns the channel change notifications are delivered on.
// The channel has capacity one; signals raised while one is already
// pending are merged.
func (s *Service) Rescan() <-chan struct{} {
	return s.rescan
}

// Start blocks until ctx is canceled. If fsnotify is unavailable the
// watcher logs a warning and idles; directory changes then need a
// manual rescan.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, directory changes need a manual rescan", "error", err)
	} else {
		defer w.Close() //nolint:errcheck
		if err := w.Add(s.dir); err != nil {
			s.logger.Warn("cannot watch image directory", "path", s.dir, "error", err)
		} else if !Probe(s.dir, 2*time.Second) {
			s.logger.Warn("image directory does not deliver filesystem events, changes need a manual rescan",
				"path", s.dir)
		} else {
			s.logger.Info("watching image directory", "path", s.dir)
		}
	}

	// Debounce timer for coalescing filesystem events into a single
	// rescan. Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	rescanPending := false

	// When fsnotify is unavailable, use nil channels (never receive).
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if !s.relevant(ev) {
				continue
			}
			s.logger.Debug("image directory changed", "path", ev.Name, "op", ev.Op.String())
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)
			rescanPending = true

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if rescanPending {
				rescanPending = false
				s.signal()
			}
		}
	}
}

// relevant reports whether ev concerns a visible image file. Write
// events count so an in-progress copy keeps pushing the debounce back
// until it quiesces.
func (s *Service) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return s.formats.Contains(strings.ToLower(filepath.Ext(name)))
}

// signal delivers a rescan notification without blocking.
func (s *Service) signal() {
	select {
	case s.rescan <- struct{}{}:
		s.logger.Info("image directory changed, rescan queued")
	default:
	}
}
