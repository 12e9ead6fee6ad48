// Package source reads structure files from HTTP(S) servers, S3 buckets and
// the local file system.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/philipparndt/gomol/internal/engine"
)

// ErrUnsupportedScheme is returned for URLs other than http, https, s3 and file
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// StatusError is returned when an HTTP server answers with a non-2xx status
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// S3Config configures access to S3-compatible object stores. Credentials
// come from the default AWS chain.
type S3Config struct {
	Region    string
	Endpoint  string // optional, e.g. a MinIO URL
	PathStyle bool
}

// ObjectGetter is the part of the S3 client the fetcher uses
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configure a Fetcher
type Options struct {
	HTTPClient *http.Client
	S3         S3Config
	// S3Client replaces the client built from S3 on first use
	S3Client ObjectGetter
	Logger   *slog.Logger
	// MaxBytes caps the size of a single download, 0 means 256 MiB
	MaxBytes int64
}

// Fetcher implements engine.Data
type Fetcher struct {
	http     *http.Client
	s3cfg    S3Config
	maxBytes int64
	logger   *slog.Logger

	s3once   sync.Once
	s3client ObjectGetter
	s3err    error
}

var _ engine.Data = (*Fetcher)(nil)

// New creates a Fetcher
func New(opts Options) *Fetcher {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 256 << 20
	}
	f := &Fetcher{http: opts.HTTPClient, s3cfg: opts.S3, maxBytes: opts.MaxBytes, logger: opts.Logger}
	if opts.S3Client != nil {
		f.s3once.Do(func() { f.s3client = opts.S3Client })
	}
	return f
}

// FetchRemote downloads rawURL. Text payloads have a leading byte order mark
// removed.
func (f *Fetcher) FetchRemote(ctx context.Context, rawURL string, binary bool) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var data []byte
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		data, err = f.fetchHTTP(ctx, rawURL)
	case "s3":
		data, err = f.fetchS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "file":
		data, err = f.ReadLocal(ctx, u.Path, binary)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetched", "url", rawURL, "bytes", len(data))
	return decode(data, binary), nil
}

// ReadLocal reads a file from disk
func (f *Fetcher) ReadLocal(ctx context.Context, path string, binary bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := f.readAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decode(data, binary), nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Status: resp.Status, Code: resp.StatusCode}
	}
	return f.readAll(resp.Body)
}

func (f *Fetcher) fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 url needs bucket and key")
	}
	client, err := f.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return f.readAll(out.Body)
}

func (f *Fetcher) s3Client(ctx context.Context) (ObjectGetter, error) {
	f.s3once.Do(func() {
		region := f.s3cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			f.s3err = fmt.Errorf("load aws config: %w", err)
			return
		}
		f.s3client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = f.s3cfg.PathStyle
			if f.s3cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(f.s3cfg.Endpoint)
			}
		})
	})
	return f.s3client, f.s3err
}

func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

var bom = []byte{0xEF, 0xBB, 0xBF}

func decode(data []byte, binary bool) []byte {
	if binary {
		return data
	}
	return bytes.TrimPrefix(data, bom)
}
