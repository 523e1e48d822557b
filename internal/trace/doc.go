// Package trace provides the tracing subsystem of nosemig.
//
// Tracing follows a migration run from file discovery through the scan and
// rewrite rounds of each file down to single fragments, which helps explain
// slow files and runs that appear stuck.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	nosemig migrate --trace=- --trace-level=detail tests/
//
// # Architecture
//
//   - nop tracer: zero-overhead default when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer dumped on panic
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelPhase: driver boundaries
//   - LevelDetail: per-file events
//   - LevelDebug: everything including fragments
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.BeginFile(t, rel, trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
//
// # Heartbeat
//
// With --trace-heartbeat the CLI beats at a fixed interval. Workers register
// the file they migrate in the InFlight set carried by the context, and each
// beat reports how many files are running and which one has run longest.
package trace
