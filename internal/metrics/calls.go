package metrics

import "time"

// AICallSucceeded records a successful AI call and its token usage.
func AICallSucceeded(kind string, duration time.Duration, inputTokens, outputTokens int) {
	AIAPICalls.WithLabelValues(kind, "success").Inc()
	AICallDuration.WithLabelValues(kind).Observe(duration.Seconds())
	AITokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	AITokensTotal.WithLabelValues("output").Add(float64(outputTokens))
}

// AICallFailed records a failed AI call.
func AICallFailed(kind string, duration time.Duration) {
	AIAPICalls.WithLabelValues(kind, "error").Inc()
	AICallDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// GeocodeHit records a lookup that produced a result.
func GeocodeHit(op string) {
	GeocoderRequests.WithLabelValues(op, "hit").Inc()
}

// GeocodeMiss records a lookup that completed without a result.
func GeocodeMiss(op string) {
	GeocoderRequests.WithLabelValues(op, "miss").Inc()
}

// GeocodeError records a lookup that failed or timed out.
func GeocodeError(op string) {
	GeocoderRequests.WithLabelValues(op, "error").Inc()
}
