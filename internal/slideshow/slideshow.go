// Package slideshow owns the image playlist: which files are in rotation,
// which one is on screen, and when the next advance is due.
package slideshow

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// ErrNoImages indicates a scan found no displayable files.
var ErrNoImages = errors.New("no supported images found")

// Entry is one image file in the rotation.
type Entry struct {
	Path string // full path for loading
	Name string // base name for logs and remote comparison
}

// Scan reads the image directory and returns entries whose extension is in
// formats (matched case-insensitively), in lexical filename order. The
// directory is created if it does not exist. Hidden files are skipped, which
// also keeps in-flight download temp files out of the rotation.
func Scan(dir string, formats mapset.Set[string]) ([]Entry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0755 is appropriate for image directories
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}

	var entries []Entry
	for _, e := range dirEntries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !formats.Contains(strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		entries = append(entries, Entry{
			Path: filepath.Join(dir, e.Name()),
			Name: e.Name(),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	return entries, nil
}

// Shuffle permutes entries in place using the given source.
func Shuffle(entries []Entry, rng *rand.Rand) {
	rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

// Playlist tracks the rotation position and hold timing. It is not
// goroutine-safe: all mutation happens from the display loop.
type Playlist struct {
	entries   []Entry
	index     int
	lastShown time.Time
}

// NewPlaylist creates a playlist positioned at the first entry. The hold
// timer starts at now so the first image gets its full display duration.
func NewPlaylist(entries []Entry, now time.Time) *Playlist {
	return &Playlist{entries: entries, lastShown: now}
}

// Len returns the number of entries in rotation.
func (p *Playlist) Len() int { return len(p.entries) }

// Current returns the entry at the rotation position, or false when the
// playlist is empty.
func (p *Playlist) Current() (Entry, bool) {
	if len(p.entries) == 0 {
		return Entry{}, false
	}
	return p.entries[p.index], true
}

// Advance moves the rotation position by step (negative steps back) with
// wraparound and returns the new current entry. Advancing an empty playlist
// is a no-op.
func (p *Playlist) Advance(step int) (Entry, bool) {
	n := len(p.entries)
	if n == 0 {
		return Entry{}, false
	}
	p.index = ((p.index+step)%n + n) % n
	return p.entries[p.index], true
}

// Replace swaps in a new entry list and resets the position to the first
// entry. A nil or empty list empties the rotation.
func (p *Playlist) Replace(entries []Entry) {
	p.entries = entries
	p.index = 0
}

// MarkShown stamps the hold timer. Called after an image (or its failed
// load) has been presented, so the hold counts from the moment of display.
func (p *Playlist) MarkShown(now time.Time) {
	p.lastShown = now
}

// Due reports whether the current image has been on screen at least hold.
func (p *Playlist) Due(now time.Time, hold time.Duration) bool {
	return now.Sub(p.lastShown) >= hold
}
