package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"provenant/pkg/requestcontext"
)

func do(h http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("burst then throttle per ip", func(t *testing.T) {
		h := New(1, 2, logger).Handler(ok)
		assert.Equal(t, http.StatusOK, do(h, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, do(h, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, do(h, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, do(h, "198.51.100.2"), "other IPs keep their own bucket")
	})

	t.Run("disabled passes everything", func(t *testing.T) {
		h := New(1, 1, logger, WithDisabled(true)).Handler(ok)
		for range 5 {
			assert.Equal(t, http.StatusOK, do(h, "198.51.100.1"))
		}
	})
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(60, 5, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithIdleTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	m.limiterFor("a")
	now = now.Add(2 * time.Minute)
	m.limiterFor("b")

	assert.Equal(t, 1, m.Sweep())
	assert.Len(t, m.visitors, 1)
}
