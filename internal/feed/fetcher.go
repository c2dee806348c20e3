package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"bus-departures-backend/internal/metrics"
)

// Errors surfaced by Fetch. Handlers map them to HTTP statuses.
var (
	// ErrUpstreamFetch indicates the archive could not be downloaded.
	ErrUpstreamFetch = errors.New("upstream feed fetch failed")

	// ErrNoJSONEntry indicates the archive holds no .json entry.
	ErrNoJSONEntry = errors.New("no JSON entry found in feed archive")

	// ErrMalformedFeed indicates the archive or its JSON payload is invalid.
	ErrMalformedFeed = errors.New("malformed feed payload")
)

// Fetcher downloads the estimated-timetable zip archive and extracts its
// JSON payload. Failures are not retried here; they propagate to the caller.
type Fetcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewFetcher creates a fetcher for the given archive URL. A circuit breaker
// shields the upstream endpoint, which has no documented rate-limit
// tolerance; requests still fail fast without retrying.
func NewFetcher(url string, timeout time.Duration, logger zerolog.Logger, collector *metrics.Collector) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:     "blablabus-feed",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Fetcher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger.With().Str("component", "feed-fetcher").Logger(),
		metrics: collector,
	}
}

// Fetch downloads the archive, extracts the first .json entry and parses it
// as the feed envelope.
func (f *Fetcher) Fetch(ctx context.Context) (*Envelope, error) {
	started := time.Now()
	if f.metrics != nil {
		f.metrics.FeedFetches.Inc()
	}

	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.download(ctx)
	})
	if err != nil {
		if f.metrics != nil {
			f.metrics.FeedFetchErrs.Inc()
		}
		f.logger.Error().Err(err).Str("url", f.url).Msg("feed download failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	envelope, err := f.parseArchive(body)
	if err != nil {
		if f.metrics != nil {
			f.metrics.FeedFetchErrs.Inc()
		}
		return nil, err
	}

	if f.metrics != nil {
		f.metrics.FeedFetchTime.Observe(time.Since(started).Seconds())
	}
	return envelope, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// parseArchive opens the zip in memory and decodes the first JSON entry.
func (f *Fetcher) parseArchive(body []byte) (*Envelope, error) {
	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", ErrMalformedFeed, err)
	}

	for _, entry := range reader.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".json") {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open entry %s: %v", ErrMalformedFeed, entry.Name, err)
		}

		var envelope Envelope
		decodeErr := json.NewDecoder(rc).Decode(&envelope)
		rc.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformedFeed, entry.Name, decodeErr)
		}

		f.logger.Debug().Str("entry", entry.Name).Int("deliveries", len(envelope.Deliveries)).Msg("feed archive parsed")
		return &envelope, nil
	}

	return nil, ErrNoJSONEntry
}
