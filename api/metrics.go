package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	reorderRoute       = "/api/tasks/update-order"
	reorderSpanName    = "board.reorder"
	reorderEventName   = "board.reorder.request"
	reorderEventDomain = "board"
	tracerName         = "taskboard-api/api"
)

// reorderMetrics captures per-request timings of the batch reorder route and
// emits them both as a structured log entry and as an otel span event.
type reorderMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	commitDuration time.Duration
	items          int
	errorStage     string
}

func newReorderMetrics(ctx context.Context, logger *log.Logger) (*reorderMetrics, context.Context) {
	m := &reorderMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, reorderSpanName, trace.WithSpanKind(trace.SpanKindServer))
	m.span = span
	return m, spanCtx
}

func (m *reorderMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *reorderMetrics) ObserveCommit(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.commitDuration = duration
}

func (m *reorderMetrics) SetItems(count int) {
	if count < 0 {
		count = 0
	}
	m.items = count
}

func (m *reorderMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the request: it records the span attributes and event,
// sets the span status and emits one structured log line.
func (m *reorderMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", reorderRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("board.reorder.total_ms", totalMs),
		attribute.Int("board.reorder.items", m.items),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.reorder.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.commitDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.reorder.commit_ms", durationToMillis(m.commitDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("board.reorder.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	logAttrs := map[string]any{
		"http.route":             reorderRoute,
		"board.reorder.total_ms": totalMs,
		"board.reorder.items":    m.items,
	}
	if m.authDuration > 0 {
		logAttrs["board.reorder.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.commitDuration > 0 {
		logAttrs["board.reorder.commit_ms"] = durationToMillis(m.commitDuration)
	}
	if m.errorStage != "" {
		logAttrs["board.reorder.error_stage"] = m.errorStage
	}

	fields := log.Fields{
		"event.name":      reorderEventName,
		"event.domain":    reorderEventDomain,
		"attributes":      logAttrs,
		"status":          status,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", reorderEventName),
			attribute.String("event.domain", reorderEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := "request failed"
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		m.span.End()
	}

	m.logger.WithFields(fields).Log(levelForSeverity(severityText), "observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
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

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
