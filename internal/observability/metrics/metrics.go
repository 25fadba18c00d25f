package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory metrics counters and gauges for HTTP
// requests, video lifecycle events, authentication outcomes, and datastore
// health. It coordinates concurrent writers via a RWMutex.
type Recorder struct {
	mu                   sync.RWMutex
	requestCount         map[requestLabel]uint64
	requestDuration      map[requestLabel]time.Duration
	videoEvents          map[string]uint64
	authEvents           map[string]uint64
	datastoreHealthValue float64
	datastoreHealthState string
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:         make(map[requestLabel]uint64),
		requestDuration:      make(map[requestLabel]time.Duration),
		videoEvents:          make(map[string]uint64),
		authEvents:           make(map[string]uint64),
		datastoreHealthState: "unknown",
		datastoreHealthValue: -1,
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveVideoEvent records a video lifecycle event ("created", "updated",
// "deleted").
func (r *Recorder) ObserveVideoEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.videoEvents[normalized]++
	r.mu.Unlock()
}

// ObserveAuthEvent records an authentication outcome ("login_success",
// "login_failure", "register", "upload_auth").
func (r *Recorder) ObserveAuthEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.authEvents[normalized]++
	r.mu.Unlock()
}

// SetDatastoreHealth maps the datastore status string to a numeric health
// value and stores both representations for export.
func (r *Recorder) SetDatastoreHealth(status string) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	value := -1.0
	switch normalized {
	case "ok", "healthy":
		value = 1
	case "unknown", "":
		normalized = "unknown"
		value = 0
	}
	r.mu.Lock()
	r.datastoreHealthValue = value
	r.datastoreHealthState = normalized
	r.mu.Unlock()
}

// VideoEventCounts returns a copy of the video lifecycle counters for
// reporting and tests.
func (r *Recorder) VideoEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make(map[string]uint64, len(r.videoEvents))
	for k, v := range r.videoEvents {
		events[k] = v
	}
	return events
}

// AuthEventCounts returns a copy of the authentication counters.
func (r *Recorder) AuthEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make(map[string]uint64, len(r.authEvents))
	for k, v := range r.authEvents {
		events[k] = v
	}
	return events
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.videoEvents = make(map[string]uint64)
	r.authEvents = make(map[string]uint64)
	r.datastoreHealthValue = -1
	r.datastoreHealthState = "unknown"
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	videoEvents := sortedKeys(r.videoEvents)
	authEvents := sortedKeys(r.authEvents)

	fmt.Fprintln(w, "# HELP reelshare_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE reelshare_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "reelshare_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP reelshare_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE reelshare_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "reelshare_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP reelshare_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE reelshare_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "reelshare_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP reelshare_video_events_total Video lifecycle events by type")
	fmt.Fprintln(w, "# TYPE reelshare_video_events_total counter")
	for _, event := range videoEvents {
		count := r.videoEvents[event]
		fmt.Fprintf(w, "reelshare_video_events_total{event=\"%s\"} %d\n", event, count)
	}

	fmt.Fprintln(w, "# HELP reelshare_auth_events_total Authentication events by outcome")
	fmt.Fprintln(w, "# TYPE reelshare_auth_events_total counter")
	for _, event := range authEvents {
		count := r.authEvents[event]
		fmt.Fprintf(w, "reelshare_auth_events_total{event=\"%s\"} %d\n", event, count)
	}

	fmt.Fprintln(w, "# HELP reelshare_datastore_health Datastore health (1=ok,0=unknown,-1=degraded)")
	fmt.Fprintln(w, "# TYPE reelshare_datastore_health gauge")
	fmt.Fprintf(w, "reelshare_datastore_health{status=\"%s\"} %f\n", r.datastoreHealthState, r.datastoreHealthValue)
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(values map[string]uint64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveVideoEvent records a video lifecycle event on the default recorder.
func ObserveVideoEvent(event string) {
	defaultRecorder.ObserveVideoEvent(event)
}

// ObserveAuthEvent records an authentication outcome on the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// SetDatastoreHealth updates datastore health on the default recorder.
func SetDatastoreHealth(status string) {
	defaultRecorder.SetDatastoreHealth(status)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
