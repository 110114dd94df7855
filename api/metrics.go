package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "todo-api/api"
	requestSpanName    = "todo.http.request"
	requestEventName   = "todo.request"
	requestEventDomain = "todo-api"
	observabilityEvent = "observability.event"
	metricsContextKey  = "request.metrics"
)

type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	route         string
	method        string
	storeDuration time.Duration
	tasksReturned int
	errorStage    string
	err           error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route, method string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger:        logger,
		span:          span,
		start:         time.Now(),
		route:         route,
		method:        method,
		tasksReturned: -1,
	}, spanCtx
}

// RequestTelemetry wraps every request in a span and emits one observability
// event when it completes.
func RequestTelemetry(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			metrics, ctx := newRequestMetrics(req.Context(), logger, c.Path(), req.Method)
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsContextKey, metrics)

			err := next(c)
			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			metrics.Log(status, err)
			return err
		}
	}
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsContextKey).(*requestMetrics)
	return m
}

func (m *requestMetrics) ObserveStore(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.storeDuration += duration
}

func (m *requestMetrics) SetTasksReturned(count int) {
	if m == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

// Fail records an error that was already turned into a response.
func (m *requestMetrics) Fail(stage string, err error) {
	if m == nil {
		return
	}
	m.SetErrorStage(stage)
	m.err = err
}

func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if err == nil {
		err = m.err
	}
	severityText, severityNumber := severityForStatus(status, err)

	attrs := map[string]any{
		"http.route":            m.route,
		"http.method":           m.method,
		"http.status_code":      status,
		"todo.request.total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.storeDuration > 0 {
		attrs["todo.request.store_ms"] = durationToMillis(m.storeDuration)
	}
	if m.tasksReturned >= 0 {
		attrs["todo.request.tasks_returned"] = m.tasksReturned
	}
	if m.errorStage != "" {
		attrs["todo.request.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	if m.span != nil {
		kvs := keyValues(attrs)
		m.span.SetAttributes(kvs...)
		eventAttrs := append(kvs,
			attribute.String("event.name", requestEventName),
			attribute.String("event.domain", requestEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
		if severityText == "ERROR" {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityText), observabilityEvent)
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	case err != nil:
		return "ERROR", 17
	default:
		return "INFO", 9
	}
}

func levelForSeverity(text string) log.Level {
	switch text {
	case "ERROR":
		return log.ErrorLevel
	case "WARN":
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func keyValues(attrs map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case string:
			out = append(out, attribute.String(k, v))
		case int:
			out = append(out, attribute.Int(k, v))
		case float64:
			out = append(out, attribute.Float64(k, v))
		case bool:
			out = append(out, attribute.Bool(k, v))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
