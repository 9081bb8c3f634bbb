// Package s3 adapts an Amazon S3 bucket prefix to the remote.Source
// interface. Credentials come from the shared AWS configuration
// (~/.aws/config), optionally selected by profile name.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sydlexius/driftwood/internal/remote"
)

// Options configures the bucket connection.
type Options struct {
	Bucket  string
	Prefix  string
	Profile string
	Region  string
}

// api is the subset of the S3 client used by Source. It also satisfies
// manager.DownloadAPIClient.
type api interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Source implements remote.Source for a single S3 bucket prefix.
type Source struct {
	client     api
	downloader *manager.Downloader
	logger     *slog.Logger
	bucket     string
	prefix     string
}

// New creates an S3 source from the shared AWS configuration.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Source, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	return NewWithClient(awss3.NewFromConfig(cfg), opts, logger), nil
}

// NewWithClient creates an S3 source with a custom client (for testing).
func NewWithClient(client api, opts Options, logger *slog.Logger) *Source {
	prefix := opts.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Source{
		client:     client,
		downloader: manager.NewDownloader(client),
		logger:     logger.With(slog.String("source", "s3")),
		bucket:     opts.Bucket,
		prefix:     prefix,
	}
}

// Name returns the backend identifier.
func (s *Source) Name() string { return "s3" }

// List returns every object directly under the configured prefix,
// following pagination until the final page. Objects in deeper
// "subfolders" and zero-byte folder placeholders are skipped.
func (s *Source) List(ctx context.Context) ([]remote.File, error) {
	var files []remote.File
	input := &awss3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, &remote.ErrUnavailable{Source: "s3", Cause: err}
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, s.prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			files = append(files, remote.File{
				ID:      key,
				Name:    name,
				ModTime: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	s.logger.Debug("bucket listing completed", slog.Int("files", len(files)))

	return files, nil
}

// Download streams the object's content into w via the transfer manager.
func (s *Source) Download(ctx context.Context, f remote.File, w io.WriterAt) error {
	_, err := s.downloader.Download(ctx, w, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(f.ID),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return &remote.ErrNotFound{Source: "s3", ID: f.ID}
		}
		return &remote.ErrUnavailable{Source: "s3", Cause: err}
	}
	return nil
}
