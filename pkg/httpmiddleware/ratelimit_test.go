package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remoteAddr string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
	req.RemoteAddr = remoteAddr
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i, want := range []string{"2", "1", "0"} {
		w := hit(h, "10.0.0.1:1000")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := hit(h, "10.0.0.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "RateLimited", body["kind"])
	assert.Equal(t, "rate limit exceeded", body["message"])

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1000").Code)
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	cfg := RateLimitConfig{Max: 4, Window: time.Minute}
	l := newLimiter(cfg)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for range 4 {
		require.True(t, l.take("k").allowed)
	}
	require.False(t, l.take("k").allowed)

	// Halfway into the next window half of the previous load still counts.
	now = now.Add(90 * time.Second)
	d := l.take("k")
	assert.True(t, d.allowed)
	assert.Equal(t, 1, d.remaining)
	assert.True(t, l.take("k").allowed)
	assert.False(t, l.take("k").allowed)

	// Two idle windows reset the key completely.
	now = now.Add(3 * time.Minute)
	assert.Equal(t, 3, l.take("k").remaining)
}

func TestRateLimit_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	l.take("a")
	now = now.Add(30 * time.Second)
	l.take("b")

	now = now.Add(100 * time.Second)
	l.evict()

	assert.NotContains(t, l.windows, "a")
	assert.Contains(t, l.windows, "b")
}

func TestRateLimit_Skip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/readyz" },
	})(okHandler())

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		req.RemoteAddr = "10.0.0.3:1"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.3:1").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header []string
		want   string
	}{
		{"remote addr", "192.168.1.1:4444", nil, "192.168.1.1"},
		{"no port", "192.168.1.1", nil, "192.168.1.1"},
		{"forwarded first hop", "192.168.1.1:4444", []string{"X-Forwarded-For", "203.0.113.50, 70.41.3.18"}, "203.0.113.50"},
		{"real ip", "192.168.1.1:4444", []string{"X-Real-IP", "198.51.100.7"}, "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for i := 0; i+1 < len(tt.header); i += 2 {
				req.Header.Set(tt.header[i], tt.header[i+1])
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestBearerOrClientIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: BearerOrClientIP,
	})(okHandler())

	// Two users behind the same address are limited separately.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.9:1", "Authorization", "Bearer alice").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.9:2", "Authorization", "Bearer bob").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.9:3", "Authorization", "Bearer alice").Code)

	// Anonymous requests share the address bucket.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.9:4").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.9:5").Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	assert.NotContains(t, BearerOrClientIP(req), "secret-token")
}
