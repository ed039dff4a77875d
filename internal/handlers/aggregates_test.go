package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTrendParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/trending/hashtags?window_days=2&limit=5", nil)
	window, limit := trendParams(req)
	if window != 48*time.Hour {
		t.Fatalf("window = %v, want 48h", window)
	}
	if limit != 5 {
		t.Fatalf("limit = %d, want 5", limit)
	}

	// Absent or garbage values fall back to the engine defaults.
	for _, url := range []string{"/v1/trending/hashtags", "/v1/trending/hashtags?window_days=x&limit=y"} {
		req = httptest.NewRequest(http.MethodGet, url, nil)
		window, limit = trendParams(req)
		if window != 0 || limit != 0 {
			t.Fatalf("%s: window=%v limit=%d, want zero values", url, window, limit)
		}
	}
}
