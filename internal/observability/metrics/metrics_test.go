package metrics

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObserveRequestAndNormalizePath(t *testing.T) {
	recorder := New()

	cases := []struct {
		name     string
		method   string
		path     string
		status   int
		expected string
	}{
		{
			name:     "root path",
			method:   "get",
			path:     "/",
			status:   200,
			expected: `reelshare_http_requests_total{method="GET",path="/",status="200"} 1`,
		},
		{
			name:     "store-native id segment",
			method:   "put",
			path:     "/api/videos/0123456789abcdef0123456789abcdef",
			status:   200,
			expected: `reelshare_http_requests_total{method="PUT",path="/api/videos/:id",status="200"} 1`,
		},
		{
			name:     "numeric id segment",
			method:   "GET",
			path:     "/api/videos/123456",
			status:   404,
			expected: `reelshare_http_requests_total{method="GET",path="/api/videos/:id",status="404"} 1`,
		},
		{
			name:     "static route untouched",
			method:   "POST",
			path:     "/api/auth/register",
			status:   201,
			expected: `reelshare_http_requests_total{method="POST",path="/api/auth/register",status="201"} 1`,
		},
		{
			name:     "trailing slash trimmed",
			method:   "GET",
			path:     "/api/videos/",
			status:   200,
			expected: `reelshare_http_requests_total{method="GET",path="/api/videos",status="200"} 1`,
		},
	}

	for _, tc := range cases {
		recorder.ObserveRequest(tc.method, tc.path, tc.status, 10*time.Millisecond)
	}

	var buf bytes.Buffer
	recorder.Write(&buf)
	body := buf.String()

	for _, tc := range cases {
		if !strings.Contains(body, tc.expected) {
			t.Errorf("%s: expected output to contain %q\ngot:\n%s", tc.name, tc.expected, body)
		}
	}
}

func TestObserveRequestAggregatesDuration(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("GET", "/healthz", 200, 100*time.Millisecond)
	recorder.ObserveRequest("GET", "/healthz", 200, 200*time.Millisecond)

	var buf bytes.Buffer
	recorder.Write(&buf)
	body := buf.String()

	if !strings.Contains(body, `reelshare_http_requests_total{method="GET",path="/healthz",status="200"} 2`) {
		t.Fatalf("expected aggregated count, got %q", body)
	}
	if !strings.Contains(body, `reelshare_http_request_duration_seconds_sum{method="GET",path="/healthz",status="200"} 0.3`) {
		t.Fatalf("expected aggregated duration 0.3s, got %q", body)
	}
}

func TestVideoAndAuthEventCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveVideoEvent("created")
	recorder.ObserveVideoEvent("created")
	recorder.ObserveVideoEvent("Deleted ")
	recorder.ObserveAuthEvent("login_success")
	recorder.ObserveAuthEvent("login_failure")
	recorder.ObserveAuthEvent("")

	videos := recorder.VideoEventCounts()
	if videos["created"] != 2 || videos["deleted"] != 1 {
		t.Fatalf("video events = %v, want created=2 deleted=1", videos)
	}
	auth := recorder.AuthEventCounts()
	if auth["login_success"] != 1 || auth["login_failure"] != 1 || auth["unknown"] != 1 {
		t.Fatalf("auth events = %v", auth)
	}

	var buf bytes.Buffer
	recorder.Write(&buf)
	body := buf.String()
	if !strings.Contains(body, `reelshare_video_events_total{event="created"} 2`) {
		t.Fatalf("expected video event line, got %q", body)
	}
	if !strings.Contains(body, `reelshare_auth_events_total{event="login_failure"} 1`) {
		t.Fatalf("expected auth event line, got %q", body)
	}
}

func TestSetDatastoreHealth(t *testing.T) {
	recorder := New()

	var buf bytes.Buffer
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `reelshare_datastore_health{status="unknown"} -1`) {
		t.Fatalf("expected initial unknown health, got %q", buf.String())
	}

	recorder.SetDatastoreHealth("ok")
	buf.Reset()
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `reelshare_datastore_health{status="ok"} 1`) {
		t.Fatalf("expected ok health, got %q", buf.String())
	}

	recorder.SetDatastoreHealth("degraded")
	buf.Reset()
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `reelshare_datastore_health{status="degraded"} -1`) {
		t.Fatalf("expected degraded health, got %q", buf.String())
	}
}

func TestRecorderConcurrentWriters(t *testing.T) {
	recorder := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				recorder.ObserveRequest("GET", "/api/videos", 200, time.Millisecond)
				recorder.ObserveVideoEvent("created")
			}
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `reelshare_http_requests_total{method="GET",path="/api/videos",status="200"} 800`) {
		t.Fatalf("expected 800 requests recorded, got %q", buf.String())
	}
	if recorder.VideoEventCounts()["created"] != 800 {
		t.Fatalf("video created = %d, want 800", recorder.VideoEventCounts()["created"])
	}
}

func TestHandlerServesPrometheusText(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("GET", "/healthz", 200, time.Millisecond)

	rr := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("content type = %q, want text/plain", got)
	}
	if !strings.Contains(rr.Body.String(), "# TYPE reelshare_http_requests_total counter") {
		t.Fatalf("expected type header in body, got %q", rr.Body.String())
	}
}

func TestResetClearsState(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("GET", "/healthz", 200, time.Millisecond)
	recorder.ObserveVideoEvent("created")
	recorder.SetDatastoreHealth("ok")
	recorder.Reset()

	var buf bytes.Buffer
	recorder.Write(&buf)
	body := buf.String()
	if strings.Contains(body, "/healthz") {
		t.Fatalf("expected request counters cleared, got %q", body)
	}
	if !strings.Contains(body, `reelshare_datastore_health{status="unknown"} -1`) {
		t.Fatalf("expected health reset to unknown, got %q", body)
	}
}
