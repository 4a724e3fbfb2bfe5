package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(remote, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/commands/get_all_jobs", nil)
	req.RemoteAddr = remote
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_AllowsRequestUnderLimit(t *testing.T) {
	handler := NewRateLimiter(100, 200).Middleware()(okHandler())

	if rr := serve(handler, request("10.0.0.1:5000", "")); rr.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimit_RejectsRequestOverLimit(t *testing.T) {
	handler := NewRateLimiter(1, 1).Middleware()(okHandler())

	// First request should succeed (uses the burst)
	if rr := serve(handler, request("10.0.0.1:5000", "")); rr.Code != http.StatusOK {
		t.Errorf("first request: got status %d, want %d", rr.Code, http.StatusOK)
	}

	// Same host on another port shares the bucket
	rr := serve(handler, request("10.0.0.1:5001", ""))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("got Retry-After %q, want %q", got, "1")
	}
}

func TestRateLimit_IndependentLimitsPerClient(t *testing.T) {
	handler := NewRateLimiter(1, 1).Middleware()(okHandler())

	serve(handler, request("10.0.0.1:5000", "alpha"))
	if rr := serve(handler, request("10.0.0.1:5000", "alpha")); rr.Code != http.StatusTooManyRequests {
		t.Errorf("token alpha: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}

	// Same address, different token
	if rr := serve(handler, request("10.0.0.1:5000", "beta")); rr.Code != http.StatusOK {
		t.Errorf("token beta: got status %d, want %d", rr.Code, http.StatusOK)
	}
	if rr := serve(handler, request("10.0.0.2:5000", "")); rr.Code != http.StatusOK {
		t.Errorf("other host: got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimit_ExpiredBucketIsReplaced(t *testing.T) {
	clk := clocktesting.NewFakePassiveClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	handler := NewRateLimiter(0.001, 1, WithTTL(time.Minute), WithRateClock(clk)).Middleware()(okHandler())

	serve(handler, request("10.0.0.1:5000", ""))
	if rr := serve(handler, request("10.0.0.1:5000", "")); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}

	clk.SetTime(clk.Now().Add(2 * time.Minute))
	if rr := serve(handler, request("10.0.0.1:5000", "")); rr.Code != http.StatusOK {
		t.Errorf("after ttl: got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimit_UnlimitedWhenRateLimitZero(t *testing.T) {
	handlerCallCount := 0
	handler := NewRateLimiter(0, 0).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
	}))

	for range 10 {
		serve(handler, request("10.0.0.1:5000", ""))
	}

	if handlerCallCount != 10 {
		t.Errorf("expected 10 handler calls, got %d", handlerCallCount)
	}
}
