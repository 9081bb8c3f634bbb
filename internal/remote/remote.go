// Package remote defines the contract between the fetcher and the cloud
// storage backends it pulls images from. Each backend lives in its own
// subpackage and adapts one service (Google Drive, S3) to the Source
// interface.
package remote

import (
	"context"
	"fmt"
	"io"
	"time"
)

// File is a single remote object as reported by a Source listing.
type File struct {
	// ID is the backend's own identifier for the object (a Drive file ID,
	// an S3 object key). Opaque to callers.
	ID string

	// Name is the object's base name, used as the local filename.
	Name string

	// ModTime is the remote modification time. A zero value means the
	// backend could not report one; callers should treat the file as
	// older than any local copy.
	ModTime time.Time
}

// Source is the interface all storage backends implement.
type Source interface {
	// Name returns the unique backend identifier ("drive", "s3").
	Name() string

	// List returns every file in the configured remote folder. It does
	// not recurse into subfolders.
	List(ctx context.Context) ([]File, error)

	// Download streams the file's content into w. The write starts at
	// offset zero; any previous content of the destination is replaced.
	Download(ctx context.Context, f File, w io.WriterAt) error
}

// FolderNamer is an optional interface backends can implement when the
// remote folder has a human-readable name worth logging.
type FolderNamer interface {
	FolderName(ctx context.Context) (string, error)
}

// ErrUnavailable indicates a transient backend failure (rate-limited,
// timeout, server error). A later sync pass may succeed.
type ErrUnavailable struct {
	Source string
	Cause  error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the backend has no object for the requested ID.
type ErrNotFound struct {
	Source string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("source %s: %s not found", e.Source, e.ID)
}
