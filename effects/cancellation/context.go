package cancellation

import (
	"context"

	"github.com/on-the-ground/effect_ive_store/effects/binding"
	"github.com/on-the-ground/effect_ive_store/effects/configkeys"
	effectmodel "github.com/on-the-ground/effect_ive_store/effects/internal/model"
	"go.uber.org/zap"
)

// WithRegistry returns a context whose cancellable effects use r.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, effectmodel.EffectCancellation, r)
}

// RegistryFrom returns the registry installed in ctx, or Default.
func RegistryFrom(ctx context.Context) *Registry {
	if r, ok := ctx.Value(effectmodel.EffectCancellation).(*Registry); ok {
		return r
	}
	return Default
}

// WithEffectHandler installs an isolated registry scope.
//
// Effects subscribed under the returned context register in the new registry only.
// The teardown cancels whatever is still live in it and returns the parent context.
func WithEffectHandler(
	ctx context.Context,
	numShards int,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	reg := NewRegistry(numShards, logger)
	return WithRegistry(ctx, reg), func() context.Context {
		reg.Close()
		return ctx
	}
}

// WithConfiguredEffectHandler is WithEffectHandler with the shard count read from
// the binding effect, DefaultNumShards when unbound.
func WithConfiguredEffectHandler(
	ctx context.Context,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	numShards := binding.GetOrDefault(ctx, configkeys.ConfigEffectCancellationRegistryNumShards, DefaultNumShards)
	return WithEffectHandler(ctx, numShards, logger)
}

// Effect cancels every live effect registered under ids in the registry of ctx and
// returns how many were disposed.
func Effect(ctx context.Context, ids ...ID) int {
	reg := RegistryFrom(ctx)
	n := 0
	for _, id := range ids {
		n += reg.CancelAll(id)
	}
	return n
}
