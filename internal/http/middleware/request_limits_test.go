package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/simple-tenant/internal/httputil"
)

func TestRequestSizeLimit(t *testing.T) {
	handler := RequestSizeLimit(32)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := httputil.DecodeJSON(r, &body); err != nil {
			httputil.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"small body - accepted", `{"name":"acme"}`, http.StatusOK},
		{"too large - rejected", `{"name":"` + string(bytes.Repeat([]byte("a"), 64)) + `"}`, http.StatusBadRequest},
		{"empty - rejected", ``, http.StatusBadRequest},
		{"map target takes any key", `{"name":"a","x":"1"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
