package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	origins := []string{"https://hub.college.edu/", "https://*.clubs.college.edu"}

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
		nextCalled  bool
	}{
		{name: "exact origin", method: http.MethodGet, origin: "https://hub.college.edu", wantStatus: http.StatusOK, wantAllowed: true, nextCalled: true},
		{name: "wildcard subdomain", method: http.MethodGet, origin: "https://robotics.clubs.college.edu", wantStatus: http.StatusOK, wantAllowed: true, nextCalled: true},
		{name: "bare wildcard host not matched", method: http.MethodGet, origin: "https://.clubs.college.edu", wantStatus: http.StatusOK, nextCalled: true},
		{name: "scheme mismatch", method: http.MethodGet, origin: "http://robotics.clubs.college.edu", wantStatus: http.StatusOK, nextCalled: true},
		{name: "unknown origin still served", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK, nextCalled: true},
		{name: "preflight allowed", method: http.MethodOptions, origin: "https://hub.college.edu", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "preflight denied", method: http.MethodOptions, origin: "https://evil.example", preflight: true, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(tt.method, "/events", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()

			CORS(origins, next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.nextCalled, called)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rr.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
			}
			if tt.preflight && tt.wantAllowed {
				assert.Equal(t, corsAllowMethods, rr.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestCORS_AnyOrigin(t *testing.T) {
	handler := CORS([]string{"*"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
