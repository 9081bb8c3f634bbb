// Package fetcher mirrors a remote folder into the local image
// directory. New or updated files are downloaded, files that vanished
// remotely are pruned, and everything else in the directory is left
// alone.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/sydlexius/driftwood/internal/filesystem"
	"github.com/sydlexius/driftwood/internal/remote"
)

// ErrDisabled is returned by Sync when no source is configured.
var ErrDisabled = errors.New("remote sync is disabled")

// ErrNoRemoteFiles is returned when the remote folder lists successfully
// but contains no supported image files. The pass downloads and prunes
// nothing, so a misconfigured folder ID cannot wipe the board.
var ErrNoRemoteFiles = errors.New("no supported files in remote folder")

// Result summarizes one synchronization pass.
type Result struct {
	ID          string
	Listed      int
	Downloaded  int
	Current     int
	Pruned      int
	RateLimited bool
}

// OK reports whether the pass left at least one usable local image, or
// was skipped because the sync interval has not elapsed yet.
func (r Result) OK() bool {
	return r.RateLimited || r.Downloaded+r.Current > 0
}

// Service runs synchronization passes against a single remote source.
// It is not safe for concurrent use; callers serialize passes.
type Service struct {
	source   remote.Source
	dir      string
	formats  mapset.Set[string]
	interval time.Duration
	logger   *slog.Logger
	lastSync time.Time
}

// New creates a fetcher service. A nil source is allowed and makes every
// Sync call return ErrDisabled.
func New(source remote.Source, dir string, formats mapset.Set[string], interval time.Duration, logger *slog.Logger) *Service {
	return &Service{
		source:   source,
		dir:      dir,
		formats:  formats,
		interval: interval,
		logger:   logger,
	}
}

// Sync runs one synchronization pass. Unless force is set, passes within
// the configured interval of the previous completed pass are skipped and
// report RateLimited.
//
// A pass that cannot produce a trustworthy listing, whether from a
// transport failure or a folder with no supported files, changes
// nothing locally.
func (s *Service) Sync(ctx context.Context, force bool) (Result, error) {
	if s.source == nil {
		return Result{}, ErrDisabled
	}
	if !force && time.Since(s.lastSync) < s.interval {
		s.logger.Debug("sync pass skipped, interval not elapsed",
			slog.Time("last_sync", s.lastSync))
		return Result{RateLimited: true}, nil
	}

	res := Result{ID: uuid.New().String()}
	start := time.Now()
	s.logger.Info("starting sync pass",
		slog.String("id", res.ID),
		slog.String("source", s.source.Name()))

	listing, err := s.source.List(ctx)
	if err != nil {
		return res, fmt.Errorf("listing remote folder: %w", err)
	}

	var files []remote.File
	for _, f := range listing {
		if s.supported(f.Name) {
			files = append(files, f)
		}
	}
	res.Listed = len(files)
	if len(files) == 0 {
		return res, ErrNoRemoteFiles
	}

	remoteNames := mapset.NewSet[string]()
	for _, f := range files {
		remoteNames.Add(f.Name)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("sync interrupted: %w", err)
		}

		downloaded, err := s.downloadOne(ctx, f)
		switch {
		case err != nil:
			s.logger.Warn("download failed",
				slog.String("file", f.Name),
				slog.Any("error", err))
		case downloaded:
			res.Downloaded++
		default:
			res.Current++
		}
	}

	res.Pruned = s.prune(remoteNames)
	s.lastSync = time.Now()

	s.logger.Info("sync pass completed",
		slog.String("id", res.ID),
		slog.Int("listed", res.Listed),
		slog.Int("downloaded", res.Downloaded),
		slog.Int("current", res.Current),
		slog.Int("pruned", res.Pruned),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}

// downloadOne fetches a single file unless the local copy is already
// current. The local copy is current when its modification time is at or
// after the remote one; a fresh download satisfies this on the next
// pass, so an unchanged remote file is fetched exactly once.
func (s *Service) downloadOne(ctx context.Context, f remote.File) (bool, error) {
	local := filepath.Join(s.dir, f.Name)

	if fi, err := os.Stat(local); err == nil && !f.ModTime.After(fi.ModTime()) {
		return false, nil
	}

	err := filesystem.WriteAtomic(local, 0o644, func(tmp *os.File) error {
		return s.source.Download(ctx, f, tmp)
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("downloaded", slog.String("file", f.Name))
	return true, nil
}

// prune removes local image files that are no longer present remotely.
// Removal failures are logged and skipped; the next pass retries them.
func (s *Service) prune(remoteNames mapset.Set[string]) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("reading image directory for prune", slog.Any("error", err))
		return 0
	}

	local := mapset.NewSet[string]()
	for _, entry := range entries {
		if entry.IsDir() || !s.supported(entry.Name()) {
			continue
		}
		local.Add(entry.Name())
	}

	pruned := 0
	for _, name := range local.Difference(remoteNames).ToSlice() {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("removing stale file",
				slog.String("file", name),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("pruned stale file", slog.String("file", name))
		pruned++
	}
	return pruned
}

// supported reports whether name is a visible file with one of the
// configured image extensions.
func (s *Service) supported(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return s.formats.Contains(strings.ToLower(filepath.Ext(name)))
}
