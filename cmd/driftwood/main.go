package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sydlexius/driftwood/internal/config"
	"github.com/sydlexius/driftwood/internal/display"
	"github.com/sydlexius/driftwood/internal/fetcher"
	"github.com/sydlexius/driftwood/internal/logging"
	"github.com/sydlexius/driftwood/internal/remote"
	"github.com/sydlexius/driftwood/internal/remote/drive"
	"github.com/sydlexius/driftwood/internal/remote/s3"
	"github.com/sydlexius/driftwood/internal/slideshow"
	"github.com/sydlexius/driftwood/internal/version"
	"github.com/sydlexius/driftwood/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("DW_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil && !errors.Is(err, config.ErrMalformed) {
		return fmt.Errorf("loading config: %w", err)
	}
	malformed := err

	// Set up structured logging via the logging Manager
	logCfg := logging.Config{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		FilePath: cfg.LogFile,
	}
	logManager, logger := logging.NewManager(logCfg)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	if malformed != nil {
		logger.Warn("config file is malformed, running with defaults", "error", malformed)
	}

	logger.Info("starting driftwood",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("image_dir", cfg.ImageDirectory),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Remote sync before the board starts. Failures never stop the
	// board; it keeps rotating whatever is already on disk.
	source := buildSource(ctx, cfg, logger)
	syncInterval := time.Duration(cfg.RemoteSync.SyncInterval) * time.Second
	fetchService := fetcher.New(source, cfg.ImageDirectory, cfg.FormatSet(), syncInterval, logger)

	if source != nil {
		if _, err := fetchService.Sync(ctx, true); err != nil {
			logger.Warn("initial sync failed, showing existing images", "error", err)
		}
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	scanFn := func() ([]slideshow.Entry, error) {
		entries, err := slideshow.Scan(cfg.ImageDirectory, cfg.FormatSet())
		if err != nil {
			return nil, err
		}
		if cfg.ShuffleImages {
			slideshow.Shuffle(entries, rng)
		}
		return entries, nil
	}

	entries, err := scanFn()
	if err != nil {
		return fmt.Errorf("scanning image directory: %w", err)
	}
	logger.Info("image directory scanned", slog.Int("images", len(entries)))

	// Watch the image directory so external changes show up without a
	// manual rescan.
	watchService := watcher.NewService(cfg.ImageDirectory, cfg.FormatSet(), logger)
	go watchService.Start(ctx)

	if source != nil && cfg.RemoteSync.Background {
		go runBackgroundSync(ctx, fetchService, syncInterval, logger)
	}

	board := display.New(entries, scanFn, watchService.Rescan(), display.Config{
		Hold:       time.Duration(cfg.DisplayDuration) * time.Second,
		Background: cfg.Color(),
		Width:      cfg.ScreenWidth,
		Height:     cfg.ScreenHeight,
		Fullscreen: cfg.Fullscreen,
	}, logger)

	if err := board.Run(ctx); err != nil {
		return err
	}

	logger.Info("driftwood stopped")
	return nil
}

// buildSource creates the configured remote source. A disabled or
// misconfigured source returns nil, which turns every sync pass into a
// no-op.
func buildSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) remote.Source {
	if !cfg.RemoteSync.Enabled {
		return nil
	}

	var (
		source remote.Source
		err    error
	)
	switch cfg.RemoteSync.Provider {
	case "s3":
		source, err = s3.New(ctx, s3.Options{
			Bucket:  cfg.RemoteSync.S3.Bucket,
			Prefix:  cfg.RemoteSync.S3.Prefix,
			Profile: cfg.RemoteSync.S3.Profile,
			Region:  cfg.RemoteSync.S3.Region,
		}, logger)
	default:
		source, err = drive.New(ctx, cfg.RemoteSync.CredentialsFile, cfg.RemoteSync.FolderID, logger)
	}
	if err != nil {
		logger.Warn("remote sync disabled",
			slog.String("provider", cfg.RemoteSync.Provider),
			slog.Any("error", err))
		return nil
	}
	return source
}

// runBackgroundSync re-runs sync passes on a ticker until ctx is
// canceled. The fetcher's own interval gate decides whether a tick
// actually hits the network.
func runBackgroundSync(ctx context.Context, svc *fetcher.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Sync(ctx, false); err != nil {
				logger.Warn("background sync failed", "error", err)
			}
		}
	}
}
