// Package feedstore reads and writes feed archives by location.
//
// A location is a local path, a file:// URL, an http(s):// URL (read only)
// or an s3://bucket/key URL.
package feedstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedLocation is returned for schemes the store cannot serve.
var ErrUnsupportedLocation = errors.New("unsupported location")

// Store fetches and stores feed bytes.
type Store struct {
	httpClient *http.Client
	s3Opts     S3Options

	mu sync.Mutex
	s3 ObjectAPI
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the client used for http(s) locations.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.httpClient = c }
}

// WithS3Client injects the object API used for s3 locations instead of one
// built from S3Options.
func WithS3Client(c ObjectAPI) Option {
	return func(s *Store) { s.s3 = c }
}

// New creates a store. The S3 client is only built when an s3 location is
// first used.
func New(s3Opts S3Options, opts ...Option) *Store {
	s := &Store{httpClient: &http.Client{}, s3Opts: s3Opts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type location struct {
	scheme string
	path   string // local path or object key
	bucket string
	raw    string
}

func parseLocation(raw string) (location, error) {
	if !strings.Contains(raw, "://") {
		return location{scheme: "file", path: raw, raw: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return location{}, fmt.Errorf("%s: %w", raw, err)
	}
	loc := location{scheme: strings.ToLower(u.Scheme), raw: raw}
	switch loc.scheme {
	case "file":
		loc.path = u.Path
	case "http", "https":
	case "s3":
		loc.bucket = u.Host
		loc.path = strings.TrimPrefix(u.Path, "/")
		if loc.bucket == "" || loc.path == "" {
			return location{}, fmt.Errorf("%s: s3 location needs a bucket and a key: %w", raw, ErrUnsupportedLocation)
		}
	default:
		return location{}, fmt.Errorf("%s: %w", raw, ErrUnsupportedLocation)
	}
	return loc, nil
}

// Get returns the bytes stored at location.
func (s *Store) Get(ctx context.Context, raw string) ([]byte, error) {
	loc, err := parseLocation(raw)
	if err != nil {
		return nil, err
	}
	switch loc.scheme {
	case "http", "https":
		return s.fetchHTTP(ctx, loc.raw)
	case "s3":
		return s.getObject(ctx, loc.bucket, loc.path)
	default:
		return os.ReadFile(loc.path)
	}
}

// Put stores data at location, creating parent directories for local paths.
func (s *Store) Put(ctx context.Context, raw string, data []byte) error {
	loc, err := parseLocation(raw)
	if err != nil {
		return err
	}
	switch loc.scheme {
	case "http", "https":
		return fmt.Errorf("%s: writing over http: %w", raw, ErrUnsupportedLocation)
	case "s3":
		return s.putObject(ctx, loc.bucket, loc.path, data)
	default:
		if dir := filepath.Dir(loc.path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		return os.WriteFile(loc.path, data, 0644)
	}
}

func (s *Store) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(resp.Body)
}
