package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	analysisSpanName    = "flow.analysis.request"
	analysisEventName   = "analysis.request.completed"
	analysisEventDomain = "flow"
	analysisRoute       = "/api/analysis"
)

// analysisRequestMetrics collects per-stage timings for the cross-entity
// analysis request and emits them both as a span and as a structured log
// event when the request finishes.
type analysisRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	journalsDuration  time.Duration
	habitsDuration    time.Duration
	goalsDuration     time.Duration
	tasksDuration     time.Duration
	daysRequested     int
	journalsReturned  int
	habitDaysReturned int
	errorStage        string
}

func newAnalysisRequestMetrics(ctx context.Context, logger *log.Logger) (*analysisRequestMetrics, context.Context) {
	tracer := otel.Tracer("flow-api")
	spanCtx, span := tracer.Start(ctx, analysisSpanName)
	span.SetAttributes(attribute.String("http.route", analysisRoute))
	return &analysisRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *analysisRequestMetrics) ObserveJournals(d time.Duration) {
	if d > 0 {
		m.journalsDuration = d
	}
}

func (m *analysisRequestMetrics) ObserveHabits(d time.Duration) {
	if d > 0 {
		m.habitsDuration = d
	}
}

func (m *analysisRequestMetrics) ObserveGoals(d time.Duration) {
	if d > 0 {
		m.goalsDuration = d
	}
}

func (m *analysisRequestMetrics) ObserveTasks(d time.Duration) {
	if d > 0 {
		m.tasksDuration = d
	}
}

func (m *analysisRequestMetrics) SetDaysRequested(n int) {
	if n < 0 {
		n = 0
	}
	m.daysRequested = n
}

func (m *analysisRequestMetrics) SetJournalsReturned(n int) {
	if n < 0 {
		n = 0
	}
	m.journalsReturned = n
}

func (m *analysisRequestMetrics) SetHabitDaysReturned(n int) {
	if n < 0 {
		n = 0
	}
	m.habitDaysReturned = n
}

func (m *analysisRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the span and writes the observability event. Safe to call
// exactly once, typically deferred.
func (m *analysisRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	totalMillis := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", analysisRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("flow.analysis.total_ms", totalMillis),
		attribute.Int("flow.analysis.days_requested", m.daysRequested),
		attribute.Int("flow.analysis.journals_returned", m.journalsReturned),
		attribute.Int("flow.analysis.habitdays_returned", m.habitDaysReturned),
	}
	if m.journalsDuration > 0 {
		attrs = append(attrs, attribute.Float64("flow.analysis.journals_ms", durationToMillis(m.journalsDuration)))
	}
	if m.habitsDuration > 0 {
		attrs = append(attrs, attribute.Float64("flow.analysis.habits_ms", durationToMillis(m.habitsDuration)))
	}
	if m.goalsDuration > 0 {
		attrs = append(attrs, attribute.Float64("flow.analysis.goals_ms", durationToMillis(m.goalsDuration)))
	}
	if m.tasksDuration > 0 {
		attrs = append(attrs, attribute.Float64("flow.analysis.tasks_ms", durationToMillis(m.tasksDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("flow.analysis.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", analysisEventName),
		attribute.String("event.domain", analysisEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= 500 {
			description := "analysis request failed"
			if err != nil {
				description = err.Error()
			}
			m.span.SetStatus(codes.Error, description)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	fields := log.Fields{
		"event.name":      analysisEventName,
		"event.domain":    analysisEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attributesAsFields(attrs),
	}
	if m.span != nil {
		sc := m.span.SpanContext()
		if sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if sc.HasSpanID() {
			fields["span_id"] = sc.SpanID().String()
		}
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func attributesAsFields(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
