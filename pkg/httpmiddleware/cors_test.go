package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(h http.Handler, method, origin string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/orders", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins: []string{"https://TasteTrack.example"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       600,
	})(okHandler())

	w := corsRequest(h, http.MethodOptions, "https://tastetrack.example",
		"Access-Control-Request-Method", http.MethodPost)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://TasteTrack.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.ElementsMatch(t,
		[]string{"Origin", "Access-Control-Request-Method", "Access-Control-Request-Headers"},
		w.Header().Values("Vary"))
}

func TestCORS_PreflightDisallowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://tastetrack.example"}})(okHandler())

	w := corsRequest(h, http.MethodOptions, "https://evil.example",
		"Access-Control-Request-Method", http.MethodGet)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_EchoesRequestedHeaders(t *testing.T) {
	h := CORS(CORSConfig{})(okHandler())

	w := corsRequest(h, http.MethodOptions, "https://any.example",
		"Access-Control-Request-Method", http.MethodPut,
		"Access-Control-Request-Headers", "Idempotency-Key")

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Idempotency-Key", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_ActualRequest(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:  []string{"*"},
		ExposeHeaders: []string{RequestIDHeader},
	})(okHandler())

	w := corsRequest(h, http.MethodGet, "https://shop.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, w.Header().Values("Vary"))

	// No Origin header means no CORS headers at all.
	w = corsRequest(h, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true, MaxAge: -1})(okHandler())

	w := corsRequest(h, http.MethodGet, "https://shop.example")
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, []string{"Origin"}, w.Header().Values("Vary"))

	w = corsRequest(h, http.MethodOptions, "https://shop.example",
		"Access-Control-Request-Method", http.MethodGet)
	assert.Equal(t, "0", w.Header().Get("Access-Control-Max-Age"))
}
