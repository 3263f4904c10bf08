// Package router dispatches HTTP requests by exact method and path. The route
// table is assembled once by a Builder and is read-only afterwards, so a
// Router is safe for concurrent use without locking.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dmitrijs2005/licensegate/internal/server/router"

// NotFoundRoute is the route name recorded for requests served by the
// fallback handler.
const NotFoundRoute = "not_found"

// Route binds a handler to one method and path.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routable contributes routes to a Builder.
type Routable interface {
	Routes() []Route
}

type routeKey struct {
	method string
	path   string
}

func (k routeKey) String() string { return k.method + " " + k.path }

type Builder struct {
	routes map[routeKey]http.HandlerFunc
	log    logging.Logger
	meter  metric.Meter
}

// NewBuilder starts an empty route table. meter may be nil, in which case
// no metrics are recorded.
func NewBuilder(log logging.Logger, meter metric.Meter) *Builder {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(instrumentationName)
	}
	return &Builder{
		routes: make(map[routeKey]http.HandlerFunc),
		log:    log.With("module", "router"),
		meter:  meter,
	}
}

// Add registers every route of the given contributors. Registering the same
// method and path twice panics.
func (b *Builder) Add(rs ...Routable) *Builder {
	for _, r := range rs {
		for _, route := range r.Routes() {
			key := routeKey{method: route.Method, path: route.Path}
			if _, dup := b.routes[key]; dup {
				panic(fmt.Sprintf("router: duplicate route %s", key))
			}
			if route.Handler == nil {
				panic(fmt.Sprintf("router: nil handler for %s", key))
			}
			b.routes[key] = route.Handler
		}
	}
	return b
}

// NotFound sets the fallback handler and returns the finished Router.
func (b *Builder) NotFound(h http.HandlerFunc) *Router {
	routes := make(map[routeKey]http.HandlerFunc, len(b.routes))
	for k, v := range b.routes {
		routes[k] = v
	}

	rt := &Router{
		routes:   routes,
		notFound: h,
		log:      b.log,
		tracer:   otel.Tracer(instrumentationName),
	}

	var err error
	rt.duration, err = b.meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests."),
		metric.WithUnit("s"))
	if err != nil {
		b.log.Warn(context.Background(), "request duration histogram unavailable", "error", err)
		rt.duration, _ = noop.NewMeterProvider().Meter(instrumentationName).Float64Histogram("http.server.request.duration")
	}
	rt.requests, err = b.meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP server requests."),
		metric.WithUnit("{request}"))
	if err != nil {
		b.log.Warn(context.Background(), "request counter unavailable", "error", err)
		rt.requests, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("http.server.requests")
	}

	return rt
}

type Router struct {
	routes   map[routeKey]http.HandlerFunc
	notFound http.HandlerFunc
	log      logging.Logger
	tracer   trace.Tracer
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// Len reports the number of registered routes.
func (rt *Router) Len() int { return len(rt.routes) }

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	key := routeKey{method: r.Method, path: r.URL.Path}
	h, ok := rt.routes[key]
	name := key.String()
	if !ok {
		h, name = rt.notFound, NotFoundRoute
	}

	ctx, span := rt.tracer.Start(r.Context(), name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		))
	defer span.End()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h(rec, r.WithContext(ctx))

	elapsed := time.Since(start)
	status := rec.status

	// The request context may already be cancelled; keep only the span.
	ctx = trace.ContextWithSpan(context.Background(), span)

	attrs := metric.WithAttributes(
		attribute.String("http.route", name),
		attribute.Int("http.response.status_code", status),
	)
	rt.duration.Record(ctx, elapsed.Seconds(), attrs)
	rt.requests.Add(ctx, 1, attrs)

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}

	rt.log.Info(ctx, "request served", "route", name, "status", status, "duration", elapsed)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
