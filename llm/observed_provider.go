package llm

import (
	"context"
	"time"

	"github.com/BaSui01/agentchat/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/agentchat/llm"

// CallRecorder 记录一次 Provider 调用。operation 取 complete / transcribe / synthesize，
// status 取 "success" 或错误码。
type CallRecorder interface {
	RecordProviderCall(provider, operation, status string, duration time.Duration)
}

// ObservedProvider 为每次调用创建 span 并记录指标。
// 指标同时写入 CallRecorder（Prometheus）与全局 MeterProvider 的 llm.call.duration 直方图。
type ObservedProvider struct {
	provider Provider
	recorder CallRecorder
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

// NewObservedProvider 创建可观测装饰器。recorder 可为空。
func NewObservedProvider(provider Provider, recorder CallRecorder) *ObservedProvider {
	// 创建失败时返回 noop 直方图，可以直接忽略错误
	duration, _ := otel.Meter(instrumentationName).Float64Histogram("llm.call.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of provider calls"),
	)
	return &ObservedProvider{
		provider: provider,
		recorder: recorder,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
	}
}

// Name 实现 Provider.Name
func (o *ObservedProvider) Name() string { return o.provider.Name() }

// Complete 实现 Provider.Complete
func (o *ObservedProvider) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	ctx, span := o.start(ctx, "complete", attribute.Int("llm.turns", len(messages)))
	start := time.Now()
	c, err := o.provider.Complete(ctx, messages)
	if err == nil {
		span.SetAttributes(
			attribute.String("llm.model", c.Model),
			attribute.Int("llm.usage.total_tokens", c.Usage.TotalTokens),
		)
	}
	o.finish(span, "complete", start, err)
	return c, err
}

// Transcribe 实现 Provider.Transcribe
func (o *ObservedProvider) Transcribe(ctx context.Context, audio *Audio) (*Transcript, error) {
	attrs := []attribute.KeyValue{}
	if audio != nil {
		attrs = append(attrs, attribute.String("audio.format", audio.Format), attribute.Int("audio.bytes", len(audio.Data)))
	}
	ctx, span := o.start(ctx, "transcribe", attrs...)
	start := time.Now()
	t, err := o.provider.Transcribe(ctx, audio)
	if err == nil {
		span.SetAttributes(attribute.Bool("stt.no_speech", t.NoSpeech))
	}
	o.finish(span, "transcribe", start, err)
	return t, err
}

// Synthesize 实现 Provider.Synthesize
func (o *ObservedProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	ctx, span := o.start(ctx, "synthesize", attribute.Int("tts.chars", len([]rune(text))))
	start := time.Now()
	a, err := o.provider.Synthesize(ctx, text)
	if err == nil {
		span.SetAttributes(attribute.String("audio.format", a.Format), attribute.Int("audio.bytes", len(a.Data)))
	}
	o.finish(span, "synthesize", start, err)
	return a, err
}

func (o *ObservedProvider) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("llm.provider", o.provider.Name()))
	return o.tracer.Start(ctx, "llm."+op, trace.WithAttributes(attrs...))
}

func (o *ObservedProvider) finish(span trace.Span, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = string(types.GetErrorCode(err))
		if status == "" {
			status = "error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	span.End()

	elapsed := time.Since(start)
	o.duration.Record(context.Background(), elapsed.Seconds(), metric.WithAttributes(
		attribute.String("llm.provider", o.provider.Name()),
		attribute.String("llm.operation", op),
		attribute.String("llm.status", status),
	))
	if o.recorder != nil {
		o.recorder.RecordProviderCall(o.provider.Name(), op, status, elapsed)
	}
}
