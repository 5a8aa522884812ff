package sleepingpill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/metrics"
	"javazone-calendar/pkg/util"
)

// DefaultURLPattern is the public session list; %d is the conference year.
const DefaultURLPattern = "https://sleepingpill.javazone.no/public/allSessions/javazone_%d"

// ErrFetch wraps every failure to obtain a usable session list.
var ErrFetch = errors.New("sleepingpill fetch failed")

// Record is one upstream session, decoded with numbers kept verbatim.
type Record map[string]any

// Fetcher returns the full upstream session set for a year.
type Fetcher interface {
	Fetch(ctx context.Context, year int) (map[uuid.UUID]Record, error)
}

// HTTPFetcher reads the session list from the sleepingpill HTTP API.
type HTTPFetcher struct {
	client     *http.Client
	urlPattern string
	logger     *zap.Logger
}

func NewHTTPFetcher(urlPattern string, timeout time.Duration, logger *zap.Logger) *HTTPFetcher {
	if urlPattern == "" {
		urlPattern = DefaultURLPattern
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		urlPattern: urlPattern,
		logger:     logger,
	}
}

type allSessionsResponse struct {
	Sessions []Record `json:"sessions"`
}

// Fetch fails on transport errors, non-2xx responses, malformed bodies and
// sessions without a valid sessionId. Nothing is returned on failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, year int) (map[uuid.UUID]Record, error) {
	url := fmt.Sprintf(f.urlPattern, year)
	log := logger.WithTrace(ctx, f.logger)

	start := time.Now()
	sessions, err := f.fetch(ctx, url)
	duration := time.Since(start)

	if err != nil {
		_, reason := util.IsRetryableError(err)
		metrics.RecordFetch(reason, duration)
		log.Error("Failed to fetch sessions",
			zap.String("url", url),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	metrics.RecordFetch("success", duration)
	log.Info("Fetched sessions",
		zap.String("url", url),
		zap.Int("count", len(sessions)),
		zap.Duration("duration", duration),
	)
	return sessions, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (map[uuid.UUID]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &util.StatusError{Service: "sleepingpill", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return decodeSessions(resp.Body)
}

func decodeSessions(r io.Reader) (map[uuid.UUID]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload allSessionsResponse
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode session list: %w", err)
	}
	if payload.Sessions == nil {
		return nil, errors.New("session list has no sessions field")
	}

	sessions := make(map[uuid.UUID]Record, len(payload.Sessions))
	for i, rec := range payload.Sessions {
		raw, _ := rec["sessionId"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("session %d has invalid sessionId %q: %w", i, raw, err)
		}
		sessions[id] = rec
	}
	return sessions, nil
}
