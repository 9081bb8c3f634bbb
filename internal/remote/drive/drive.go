// Package drive adapts a Google Drive folder to the remote.Source
// interface. It authenticates as a service account and talks to the
// Drive v3 REST API directly; the folder must be shared with the
// service account's email address.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/sydlexius/driftwood/internal/remote"
)

const (
	defaultBaseURL = "https://www.googleapis.com/drive/v3"

	// scopeReadonly grants read access to file metadata and content.
	scopeReadonly = "https://www.googleapis.com/auth/drive.readonly"

	// pageSize is the number of entries requested per listing page,
	// the maximum Drive allows.
	pageSize = "1000"

	requestsPerSecond = 5
)

// Source implements remote.Source for a single Google Drive folder.
type Source struct {
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	baseURL  string
	folderID string
}

// New creates a Drive source from a service account key file.
func New(ctx context.Context, credentialsFile, folderID string, logger *slog.Logger) (*Source, error) {
	if folderID == "" {
		return nil, errors.New("drive: folder ID is required")
	}
	if credentialsFile == "" {
		return nil, errors.New("drive: credentials file is required")
	}

	data, err := os.ReadFile(credentialsFile) //nolint:gosec // path comes from local config
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, scopeReadonly)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	client := conf.Client(ctx)
	client.Timeout = 2 * time.Minute

	return NewWithBaseURL(client, folderID, logger, defaultBaseURL), nil
}

// NewWithBaseURL creates a Drive source with a custom HTTP client and
// base URL (for testing).
func NewWithBaseURL(client *http.Client, folderID string, logger *slog.Logger, baseURL string) *Source {
	return &Source{
		client:   client,
		limiter:  rate.NewLimiter(requestsPerSecond, 1),
		logger:   logger.With(slog.String("source", "drive")),
		baseURL:  strings.TrimRight(baseURL, "/"),
		folderID: folderID,
	}
}

// Name returns the backend identifier.
func (s *Source) Name() string { return "drive" }

// List returns every non-trashed file in the folder, following
// pagination until the final page. Entries whose modification time
// cannot be parsed keep a zero ModTime rather than being dropped, so a
// bad timestamp never causes the local copy to be pruned.
func (s *Source) List(ctx context.Context) ([]remote.File, error) {
	var files []remote.File
	pageToken := ""

	for {
		params := url.Values{
			"q":        {fmt.Sprintf("'%s' in parents and trashed=false", s.folderID)},
			"fields":   {"nextPageToken, files(id, name, modifiedTime)"},
			"pageSize": {pageSize},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, err := s.doRequest(ctx, s.baseURL+"/files?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing listing response: %w", err)
		}

		for _, f := range resp.Files {
			files = append(files, remote.File{
				ID:      f.ID,
				Name:    f.Name,
				ModTime: s.parseModTime(f),
			})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	s.logger.Debug("folder listing completed", slog.Int("files", len(files)))

	return files, nil
}

// Download streams the file's content into w, starting at offset zero.
func (s *Source) Download(ctx context.Context, f remote.File, w io.WriterAt) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &remote.ErrUnavailable{Source: "drive", Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	reqURL := fmt.Sprintf("%s/files/%s?alt=media", s.baseURL, url.PathEscape(f.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req) //nolint:gosec // URL constructed from source config and listed file IDs
	if err != nil {
		return &remote.ErrUnavailable{Source: "drive", Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus(resp.StatusCode, f.ID); err != nil {
		return err
	}

	if _, err := io.Copy(io.NewOffsetWriter(w, 0), resp.Body); err != nil {
		return fmt.Errorf("streaming %s: %w", f.Name, err)
	}

	return nil
}

// FolderName returns the folder's display name. Implements
// remote.FolderNamer.
func (s *Source) FolderName(ctx context.Context) (string, error) {
	params := url.Values{"fields": {"name"}}
	reqURL := fmt.Sprintf("%s/files/%s?%s", s.baseURL, url.PathEscape(s.folderID), params.Encode())

	body, err := s.doRequest(ctx, reqURL)
	if err != nil {
		return "", err
	}

	var f driveFile
	if err := json.Unmarshal(body, &f); err != nil {
		return "", fmt.Errorf("parsing folder response: %w", err)
	}

	return f.Name, nil
}

// doRequest executes a rate-limited GET request and returns the response body.
func (s *Source) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &remote.ErrUnavailable{Source: "drive", Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req) //nolint:gosec // URL constructed from source config and validated inputs
	if err != nil {
		return nil, &remote.ErrUnavailable{Source: "drive", Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus(resp.StatusCode, reqURL); err != nil {
		return nil, err
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}

// checkStatus maps a Drive response status to the shared error types.
func checkStatus(code int, id string) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return &remote.ErrNotFound{Source: "drive", ID: id}
	case http.StatusTooManyRequests:
		return &remote.ErrUnavailable{Source: "drive", Cause: fmt.Errorf("rate limited by server")}
	default:
		return &remote.ErrUnavailable{Source: "drive", Cause: fmt.Errorf("unexpected status %d", code)}
	}
}

// parseModTime parses a Drive modifiedTime value. Drive reports RFC 3339
// with millisecond precision; time.RFC3339 accepts both fractional and
// whole seconds.
func (s *Source) parseModTime(f driveFile) time.Time {
	if f.ModifiedTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		s.logger.Warn("unparseable modification time",
			slog.String("file", f.Name),
			slog.String("value", f.ModifiedTime))
		return time.Time{}
	}
	return t
}
