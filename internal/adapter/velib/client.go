// Package velib fetches the OpenDataSoft real-time Vélib' availability export.
package velib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/velib-etl-service/internal/config"
	"github.com/couchcryptid/velib-etl-service/internal/domain"
)

// Client reads full feed exports over HTTP. A circuit breaker sits in front
// of the upstream API; run-level retry belongs to the scheduler, not here.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataset    string
	rows       int
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a feed client from the feed settings. The configured
// timeout bounds the whole request including body read.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "velib-feed",
		Timeout: 2 * cfg.FeedTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("feed circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.FeedTimeout},
		baseURL:    cfg.FeedURL,
		dataset:    cfg.FeedDataset,
		rows:       cfg.FeedRows,
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchSnapshot downloads the current feed export and wraps it as a raw
// snapshot stamped with the ingestion time and source tag. The payload bytes
// are kept exactly as received.
func (c *Client) FetchSnapshot(ctx context.Context) (domain.RawSnapshot, error) {
	params := url.Values{
		"dataset": {c.dataset},
		"rows":    {strconv.Itoa(c.rows)},
		"format":  {"json"},
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	})
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("fetch feed: %w", err)
	}
	payload := result.([]byte)

	// nhits is the feed's own record count; a payload without it still
	// ingests, it just reports zero records.
	var head struct {
		NHits int `json:"nhits"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("decode feed response: %w", err)
	}

	return domain.RawSnapshot{
		Payload:     payload,
		IngestedAt:  domain.Now(),
		Source:      domain.SourceTag,
		RecordCount: head.NHits,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}

	c.logger.Debug("feed export fetched", "bytes", len(payload), "duration", time.Since(start))
	return payload, nil
}
