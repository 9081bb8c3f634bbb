// Package display renders the image rotation fullscreen via ebiten and
// handles the keyboard controls.
package display

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/sydlexius/driftwood/internal/imaging"
	"github.com/sydlexius/driftwood/internal/slideshow"
)

// ticksPerSecond is the update rate. Key handling and the hold timer
// only need coarse resolution; a low tick rate keeps the board cheap
// on small devices.
const ticksPerSecond = 30

// Config carries the display settings the board needs.
type Config struct {
	Hold       time.Duration
	Background color.RGBA
	Width      int
	Height     int
	Fullscreen bool
}

// Board is the bulletin board. It owns the playlist, reacts to keys and
// rescan signals, and draws the current image centered on the
// background color. It implements ebiten.Game.
type Board struct {
	playlist *slideshow.Playlist
	scan     func() ([]slideshow.Entry, error)
	rescanCh <-chan struct{}
	done     <-chan struct{}
	logger   *slog.Logger

	hold       time.Duration
	bg         color.RGBA
	width      int
	height     int
	fullscreen bool

	current     *ebiten.Image
	currentName string
	needsLoad   bool
}

// New creates a board showing entries. scan re-reads the image
// directory for the R key; rescanCh, when non-nil, delivers watcher
// notifications that trigger the same rescan.
func New(entries []slideshow.Entry, scan func() ([]slideshow.Entry, error), rescanCh <-chan struct{}, cfg Config, logger *slog.Logger) *Board {
	return &Board{
		playlist:   slideshow.NewPlaylist(entries, time.Now()),
		scan:       scan,
		rescanCh:   rescanCh,
		logger:     logger.With("component", "display"),
		hold:       cfg.Hold,
		bg:         cfg.Background,
		width:      cfg.Width,
		height:     cfg.Height,
		fullscreen: cfg.Fullscreen,
		needsLoad:  true,
	}
}

// Run opens the window and blocks until a quit key is pressed or ctx is
// canceled. In fullscreen mode the configured dimensions are replaced
// by the monitor's.
func (b *Board) Run(ctx context.Context) error {
	b.done = ctx.Done()

	ebiten.SetWindowTitle("Driftwood")
	ebiten.SetTPS(ticksPerSecond)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)

	if b.fullscreen {
		b.width, b.height = ebiten.ScreenSizeInFullscreen()
		ebiten.SetFullscreen(true)
	} else {
		ebiten.SetWindowSize(b.width, b.height)
	}

	if err := ebiten.RunGame(b); err != nil {
		return fmt.Errorf("running display: %w", err)
	}
	return nil
}

// Update advances the board one tick: quit first, then manual keys,
// then queued rescans, then the hold timer.
func (b *Board) Update() error {
	select {
	case <-b.done:
		return ebiten.Termination
	default:
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace), inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		b.advance(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		b.advance(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		b.rescan()
	}

	select {
	case <-b.rescanCh:
		b.rescan()
	default:
	}

	// The hold timer yields when a key or rescan already queued a load
	// this tick; otherwise a manual advance near the hold boundary would
	// step twice.
	if !b.needsLoad && b.playlist.Len() > 0 && b.playlist.Due(time.Now(), b.hold) {
		b.advance(1)
	}

	if b.needsLoad {
		b.needsLoad = false
		b.show()
	}

	return nil
}

// Draw paints the background and the current image centered.
func (b *Board) Draw(screen *ebiten.Image) {
	screen.Fill(b.bg)
	if b.current == nil {
		return
	}

	bounds := b.current.Bounds()
	x, y := centerOffset(screen.Bounds().Dx(), screen.Bounds().Dy(), bounds.Dx(), bounds.Dy())

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(b.current, op)
}

// Layout reports the logical screen size.
func (b *Board) Layout(outsideWidth, outsideHeight int) (int, int) {
	return b.width, b.height
}

// advance moves the playlist and schedules a load. On an empty playlist
// it does nothing.
func (b *Board) advance(step int) {
	if _, ok := b.playlist.Advance(step); !ok {
		return
	}
	b.needsLoad = true
}

// rescan re-reads the image directory. On failure or an empty result
// the board keeps running and shows only the background until images
// return.
func (b *Board) rescan() {
	entries, err := b.scan()
	if err != nil {
		if errors.Is(err, slideshow.ErrNoImages) {
			b.logger.Warn("rescan found no images", "error", err)
		} else {
			b.logger.Error("rescan failed", "error", err)
		}
		b.playlist.Replace(nil)
		b.current = nil
		b.currentName = ""
		return
	}

	b.logger.Info("rescanned image directory", "images", len(entries))
	b.playlist.Replace(entries)
	b.needsLoad = true
}

// show loads the current entry and swaps it onto the screen. A load
// failure keeps the previous image visible; the hold timer restarts
// either way so one corrupt file cannot freeze the rotation.
func (b *Board) show() {
	defer b.playlist.MarkShown(time.Now())

	entry, ok := b.playlist.Current()
	if !ok {
		return
	}

	img, err := imaging.LoadFit(entry.Path, b.width, b.height)
	if err != nil {
		b.logger.Warn("cannot load image", "file", entry.Name, "error", err)
		return
	}

	b.current = ebiten.NewImageFromImage(img)
	b.currentName = entry.Name
	b.logger.Debug("showing image", "file", entry.Name)
}

// centerOffset returns the top-left position that centers an image of
// the given size on the screen.
func centerOffset(screenW, screenH, imgW, imgH int) (int, int) {
	return (screenW - imgW) / 2, (screenH - imgH) / 2
}
