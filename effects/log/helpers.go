package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// WithTestEffectHandler installs a log handler writing to the test's own log at
// debug level, so entries show up next to the test that produced them.
// Entries still queued when the teardown runs are written before it returns.
func WithTestEffectHandler(
	ctx context.Context,
	tb zaptest.TestingT,
) (context.Context, func() context.Context) {
	return WithZapEffectHandler(
		ctx,
		16,
		zaptest.NewLogger(tb, zaptest.Level(zap.DebugLevel)),
	)
}
