package trace

import "context"

type ctxKey uint8

const (
	tracerKey ctxKey = iota
	spanKey
	flightKey
)

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx. A nil t stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey, t)
}

// SpanContext names the span that spans begun from a context nest under.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

// CurrentSpan returns the span attached by WithSpan, or the zero value when
// spans begun from ctx are roots.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanKey).(SpanContext)
	return sc
}

// WithSpan makes s the parent of spans begun from the returned context.
// Disabled spans leave ctx unchanged.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if s.ID() == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanKey, SpanContext{SpanID: s.id, GID: s.gid})
}

// WithInFlight attaches the set of files the heartbeat reports on.
func WithInFlight(ctx context.Context, f *InFlight) context.Context {
	return context.WithValue(ctx, flightKey, f)
}

// InFlightFrom returns the set attached by WithInFlight. The result may be
// nil; its methods accept that.
func InFlightFrom(ctx context.Context) *InFlight {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(flightKey).(*InFlight)
	return f
}
