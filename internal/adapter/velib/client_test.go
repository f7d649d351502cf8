package velib

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/velib-etl-service/internal/domain"
)

const testDataset = "velib-disponibilite-en-temps-reel@parisdata"

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		dataset:    testDataset,
		rows:       10000,
		breaker:    gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_FetchSnapshot_Success(t *testing.T) {
	frozen := time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	payload := `{"nhits":2,"records":[{"fields":{"stationcode":"16107"}},{"fields":{"stationcode":"10042"}}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testDataset, r.URL.Query().Get("dataset"))
		assert.Equal(t, "10000", r.URL.Query().Get("rows"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(payload))
		require.NoError(t, err)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []byte(payload), snap.Payload)
	assert.Equal(t, frozen, snap.IngestedAt)
	assert.Equal(t, domain.SourceTag, snap.Source)
	assert.Equal(t, 2, snap.RecordCount)
}

func TestClient_FetchSnapshot_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchSnapshot(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClient_FetchSnapshot_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchSnapshot(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed response")
}

func TestClient_FetchSnapshot_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	for range 3 {
		_, err := c.FetchSnapshot(context.Background())
		require.Error(t, err)
	}

	_, err := c.FetchSnapshot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestClient_FetchSnapshot_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).FetchSnapshot(ctx)
	require.Error(t, err)
}
