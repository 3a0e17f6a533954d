package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/agora-market/agora-auth/internal/metrics"
)

// Metrics records per-request latency labeled by route pattern and status.
// Must run inside the mux so r.Pattern is populated; raw paths would blow
// up label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		start := time.Now()

		next.ServeHTTP(recorder, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(pattern, strconv.Itoa(recorder.StatusCode)).
			Observe(time.Since(start).Seconds())
	})
}
