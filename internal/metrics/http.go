package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

var (
	// Record IDs in API paths
	uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

	// Step index segment of step completion routes
	stepPattern = regexp.MustCompile(`/steps/\d+/`)
)

// unmatchedPath labels requests that found no route, so probes for random
// paths cannot inflate label cardinality.
const unmatchedPath = "{unmatched}"

// statusRecorder captures the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wrote {
		rec.status = code
		rec.wrote = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wrote = true
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// normalizePath replaces record IDs and step indexes with placeholders.
func normalizePath(path string) string {
	path = uuidPattern.ReplaceAllString(path, "{id}")
	return stepPattern.ReplaceAllString(path, "/steps/{index}/")
}

// routeLabel is the path label for a finished request.
func routeLabel(path string, status int) string {
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		if uuidPattern.MatchString(path) {
			return normalizePath(path)
		}
		return unmatchedPath
	}
	return normalizePath(path)
}

// Middleware records request counts, latency and in-flight requests. The
// health and metrics endpoints are not measured.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := routeLabel(r.URL.Path, rec.status)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
