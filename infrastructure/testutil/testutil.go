// Package testutil holds small test helpers shared across the migration
// core's test suites.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// NewHTTPTestServer creates an httptest.Server and skips the test if the
// sandbox blocks opening a local listener.
func NewHTTPTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			if strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied") {
				t.Skipf("skipping HTTP server test due to sandbox restrictions: %v", r)
			}
			panic(r)
		}
	}()
	return httptest.NewServer(handler)
}

// Eventually polls cond every interval until it returns true or timeout
// elapses, failing the test otherwise. Used by resilience tests that assert
// on asynchronous state transitions (breaker half-open probe, bulkhead
// drain) without a fixed sleep.
func Eventually(t *testing.T, timeout, interval time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(interval)
	}
}
