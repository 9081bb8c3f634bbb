package watcher

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Probe tests whether fsnotify delivers events for dir. Network
// filesystems often accept a watch without ever delivering events; the
// probe creates a hidden marker file, watches for its Create event, and
// reports whether the event arrives within the timeout.
func Probe(dir string, timeout time.Duration) bool {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(dir); err != nil {
		return false
	}

	// Create a marker file with a random suffix. The dot prefix keeps
	// it out of scans and rescan signals.
	probeName := fmt.Sprintf(".driftwood_probe_%d", rand.Int64()) //nolint:gosec // G404: not security-sensitive
	probePath := filepath.Join(dir, probeName)

	if err := os.WriteFile(probePath, nil, 0o600); err != nil {
		return false
	}
	defer os.Remove(probePath) //nolint:errcheck

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if ev.Has(fsnotify.Create) && filepath.Base(ev.Name) == probeName {
				return true
			}
		case <-w.Errors:
			return false
		case <-timer.C:
			return false
		}
	}
}
