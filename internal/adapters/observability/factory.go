package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marketmind/marketmind/internal/adapters/duckdb"
	"github.com/marketmind/marketmind/internal/config"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// Build selects the tracing backend from configuration. The returned Local
// collector is non-nil only for the "local" provider; the shutdown function
// is always safe to call.
func Build(ctx context.Context, cfg config.ObservabilityConfig, logger *slog.Logger) (ports.Observability, *Local, func(context.Context) error, error) {
	noShutdown := func(context.Context) error { return nil }

	switch cfg.Provider {
	case "", "noop":
		return NewNoop(), nil, noShutdown, nil

	case "langfuse":
		if cfg.LangfusePublicKey == "" || cfg.LangfuseSecretKey == "" {
			return nil, nil, nil, fmt.Errorf("langfuse credentials are required (LANGFUSE_PUBLIC_KEY, LANGFUSE_SECRET_KEY)")
		}
		return NewLangfuse(cfg.LangfuseHost, cfg.LangfusePublicKey, cfg.LangfuseSecretKey, logger), nil, noShutdown, nil

	case "otel":
		sink, err := NewOTel(ctx, cfg.OTLPEndpoint, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return sink, nil, sink.Shutdown, nil

	case "local":
		store, err := duckdb.NewTraceStore(cfg.LocalDBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening trace store: %w", err)
		}
		local := NewLocal(logger, store)
		shutdown := func(context.Context) error { return store.Close() }
		return local, local, shutdown, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported observability provider: %s", cfg.Provider)
	}
}
