// Package source reads Drool exports from local files or remote URLs.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cqframework/cqftooling/models/drool"
	"github.com/cqframework/cqftooling/util"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// maxBodySize caps remote exports at 64 MiB.
const maxBodySize = 64 << 20

type Loader struct {
	client *http.Client
	log    zerolog.Logger
}

// NewLoader creates a loader whose HTTP client retries up to retryMax times.
func NewLoader(timeout time.Duration, retryMax int, log zerolog.Logger) *Loader {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient = &http.Client{Timeout: timeout}
	retryClient.Logger = leveledLogger{log: log}

	return &Loader{
		client: retryClient.StandardClient(),
		log:    log,
	}
}

// Load reads and decodes the export at location, a file path or http(s) URL.
func (l *Loader) Load(ctx context.Context, location string) (*drool.Document, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}

	doc, err := drool.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", location, err)
	}

	l.log.Info().
		Str("source", location).
		Int("conditions", len(doc.Conditions)).
		Msg("Loaded drool export")
	return doc, nil
}

// Read returns the raw bytes at location.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	if util.IsURL(location) {
		return l.fetch(ctx, location)
	}

	path, err := util.GetAbsolutePath(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json; charset=utf-8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	l.log.Debug().
		Str("url", uri).
		Int("status", resp.StatusCode).
		Msg("Fetched drool export")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, uri)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", uri, maxBodySize)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("received empty response from server for URL: %s", uri)
	}
	return body, nil
}

// leveledLogger routes retryablehttp logging through zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
