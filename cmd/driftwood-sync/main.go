// Command driftwood-sync runs a single synchronization pass against the
// configured remote folder and exits. It exists for cron jobs and for
// checking credentials without starting the display.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sydlexius/driftwood/internal/config"
	"github.com/sydlexius/driftwood/internal/fetcher"
	"github.com/sydlexius/driftwood/internal/logging"
	"github.com/sydlexius/driftwood/internal/remote"
	"github.com/sydlexius/driftwood/internal/remote/drive"
	"github.com/sydlexius/driftwood/internal/remote/s3"
	"github.com/sydlexius/driftwood/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default config.yaml)")
	folderID := flag.String("folder-id", "", "remote folder ID override")
	credentials := flag.String("credentials", "", "credentials file override")
	outputDir := flag.String("output-dir", "", "image directory override")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("driftwood-sync %s (%s)\n", version.Version, version.Commit)
		return 0
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("DW_CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil && !errors.Is(err, config.ErrMalformed) {
		fmt.Fprintf(os.Stderr, "driftwood-sync: loading config: %v\n", err)
		return 1
	}
	malformed := err

	if *folderID != "" {
		cfg.RemoteSync.FolderID = *folderID
	}
	if *credentials != "" {
		cfg.RemoteSync.CredentialsFile = *credentials
	}
	if *outputDir != "" {
		cfg.ImageDirectory = *outputDir
	}

	logCfg := logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}
	if *verbose {
		logCfg.Level = "debug"
	}
	logManager, logger := logging.NewManager(logCfg)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	if malformed != nil {
		logger.Warn("config file is malformed, running with defaults", "error", malformed)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var source remote.Source
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
		fmt.Fprintf(os.Stderr, "driftwood-sync: %v\n", err)
		return 1
	}

	if namer, ok := source.(remote.FolderNamer); ok {
		if name, err := namer.FolderName(ctx); err == nil {
			logger.Info("syncing remote folder", slog.String("name", name))
		}
	}

	interval := time.Duration(cfg.RemoteSync.SyncInterval) * time.Second
	svc := fetcher.New(source, cfg.ImageDirectory, cfg.FormatSet(), interval, logger)

	res, err := svc.Sync(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "driftwood-sync: %v\n", err)
		return 1
	}

	fmt.Printf("Synchronized %s: %d listed, %d downloaded, %d current, %d pruned\n",
		cfg.ImageDirectory, res.Listed, res.Downloaded, res.Current, res.Pruned)

	if !res.OK() {
		fmt.Fprintln(os.Stderr, "driftwood-sync: no files could be downloaded")
		return 1
	}
	return 0
}
