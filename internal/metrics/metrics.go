// Package metrics exposes OpenTelemetry counters for the session engine.
// Without an SDK wired in, the global provider is a no-op, so recording is
// always safe.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("github.com/procrastino/procrastino")

	sessionsStarted   metric.Int64Counter
	sessionsCompleted metric.Int64Counter
	sessionsAbandoned metric.Int64Counter
	sessionsReclaimed metric.Int64Counter
	xpGranted         metric.Int64Counter
	xpLost            metric.Int64Counter
)

func init() {
	sessionsStarted, _ = meter.Int64Counter("procrastino.sessions.started",
		metric.WithDescription("Focus sessions started"))
	sessionsCompleted, _ = meter.Int64Counter("procrastino.sessions.completed",
		metric.WithDescription("Focus sessions settled as completed"))
	sessionsAbandoned, _ = meter.Int64Counter("procrastino.sessions.abandoned",
		metric.WithDescription("Focus sessions settled as abandoned"))
	sessionsReclaimed, _ = meter.Int64Counter("procrastino.sessions.reclaimed",
		metric.WithDescription("Stale active sessions reclaimed lazily"))
	xpGranted, _ = meter.Int64Counter("procrastino.xp.granted",
		metric.WithDescription("XP credited to users at settlement"))
	xpLost, _ = meter.Int64Counter("procrastino.xp.lost",
		metric.WithDescription("XP debited from users at settlement"))
}

// SessionStarted records a started session.
func SessionStarted(ctx context.Context) { sessionsStarted.Add(ctx, 1) }

// SessionCompleted records a completed settlement and its XP delta.
func SessionCompleted(ctx context.Context, xpDelta int64) {
	sessionsCompleted.Add(ctx, 1)
	recordXP(ctx, xpDelta)
}

// SessionAbandoned records an abandon settlement and its XP delta.
func SessionAbandoned(ctx context.Context, xpDelta int64) {
	sessionsAbandoned.Add(ctx, 1)
	recordXP(ctx, xpDelta)
}

// SessionsReclaimed records lazily reclaimed stale sessions.
func SessionsReclaimed(ctx context.Context, n int64) {
	if n > 0 {
		sessionsReclaimed.Add(ctx, n)
	}
}

func recordXP(ctx context.Context, delta int64) {
	switch {
	case delta > 0:
		xpGranted.Add(ctx, delta)
	case delta < 0:
		xpLost.Add(ctx, -delta)
	}
}
