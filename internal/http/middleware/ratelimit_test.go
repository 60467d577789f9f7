package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tendant/simple-tenant/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Requests: 2, Window: time.Minute, Logger: discard})(okHandler())

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, status := range want {
		req := httptest.NewRequest("POST", "/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != status {
			t.Errorf("request %d: got status %d, want %d", i+1, w.Code, status)
		}
	}

	// another client has its own budget
	req := httptest.NewRequest("POST", "/v1/auth/login", nil)
	req.RemoteAddr = "192.168.1.2:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other client: got status %d, want %d", w.Code, http.StatusOK)
	}
}

func TestLoginRateLimit_Disabled(t *testing.T) {
	handler := LoginRateLimit(config.RateLimitConfig{Enabled: false}, discard)(okHandler())

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("POST", "/v1/auth/login", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: got status %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestLoginRateLimit_Enabled(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, LoginRequests: 1, LoginWindow: time.Minute}
	handler := LoginRateLimit(cfg, discard)(okHandler())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/v1/auth/login", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}
