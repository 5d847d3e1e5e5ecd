// Package middleware provides HTTP middleware for the console's status
// server.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus request metrics middleware
//
// Both are plain func(http.Handler) http.Handler values and plug into a chi
// router with Use:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("console")))
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//
// # OpenTelemetry Middleware
//
// Each request gets a server span named after the method and chi route
// pattern. Skip noisy endpoints with a filter:
//
//	middleware.OpenTelemetry(
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware counts and times requests per chi route. Pass
// a registry with WithRegistry to keep the metrics off the global default
// registerer.
package middleware
