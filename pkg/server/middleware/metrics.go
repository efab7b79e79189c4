package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/observability"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics records request counts and latencies. The route pattern is
// used as the path label so parameterized URLs share one series.
func Metrics(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, req)

			path := chi.RouteContext(req.Context()).RoutePattern()
			if path == "" {
				path = req.URL.Path
			}
			metrics.RecordHTTPRequest(req.Method, path, strconv.Itoa(ww.Status()), time.Since(start).Seconds())
		})
	}
}
