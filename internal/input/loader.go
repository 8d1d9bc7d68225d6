package input

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spigell/care-matcher/internal/care"
	"go.uber.org/zap"
)

const (
	userAgent       = "spigell/care-matcher"
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxBodyBytes    = 32 << 20
)

// Loader reads documents from local files or HTTP(S) endpoints.
type Loader struct {
	HTTPClient *http.Client
	UserAgent  string

	token  string
	logger *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithToken sends the token as a bearer credential on HTTP requests.
func WithToken(token string) LoaderOption {
	return func(l *Loader) { l.token = strings.TrimSpace(token) }
}

// WithLogger sets the loader logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a Loader with a 10 second HTTP timeout.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Read returns the document at location, a file path or an http(s) URL.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrInvalid)
	}
	if !isURL(location) {
		return os.ReadFile(location)
	}
	return l.get(ctx, location)
}

func (l *Loader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	l.setHeaders(req)

	l.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(io.LimitReader(reader, maxBodyBytes))
}

func (l *Loader) setHeaders(req *http.Request) {
	if l.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", l.token))
	}
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
}

// Payload reads and parses a match payload.
func (l *Loader) Payload(ctx context.Context, location string) (*Payload, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read payload %q: %w", location, err)
	}
	return ParsePayload(data)
}

// Requests reads a request list, bare or wrapped in {"requests": [...]}.
func (l *Loader) Requests(ctx context.Context, location string) ([]map[string]any, error) {
	return l.records(ctx, location, "requests")
}

// Candidates reads and decodes a caregiver list, bare or wrapped in {"caregivers": [...]}.
func (l *Loader) Candidates(ctx context.Context, location string) ([]*care.Candidate, error) {
	raws, err := l.records(ctx, location, "caregivers")
	if err != nil {
		return nil, err
	}
	return care.DecodeCandidates(raws)
}

func (l *Loader) records(ctx context.Context, location, wrapper string) ([]map[string]any, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read %s %q: %w", wrapper, location, err)
	}
	list, err := parseRecords(data, wrapper)
	if err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", wrapper, location, err)
	}
	return list, nil
}
