package httpapi_test

import (
	"net/http"
	"testing"
)

func TestRequestIDIsAssignedAndEchoed(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodGet, "/healthz", "", nil)
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("response is missing X-Request-Id")
	}

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("X-Request-Id"); got != "caller-supplied-id" {
		t.Fatalf("incoming request id not honored: %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodGet, "/healthz", "", nil)
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing X-Content-Type-Options header")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options header")
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/links", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight: unexpected status %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("missing Access-Control-Allow-Origin header")
	}
}

func TestRateLimitEventuallyRejects(t *testing.T) {
	f := newAPIFixture(t)

	var limited bool
	for i := 0; i < 60; i++ {
		resp := f.do(http.MethodGet, "/healthz", "", nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("rate limiter never engaged")
	}
}
