package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"invoiceagent/internal/anomaly"
	"invoiceagent/internal/enrich"
	"invoiceagent/internal/erp"
	"invoiceagent/internal/explain"
	"invoiceagent/internal/metrics"
	"invoiceagent/internal/pipeline"
	"invoiceagent/internal/storage"
	"invoiceagent/pkg/services"
)

// pipelineDeps owns the resources behind a pipeline.
type pipelineDeps struct {
	pipeline *pipeline.Pipeline
	registry *prometheus.Registry
	closers  []func() error
}

func (d *pipelineDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

// buildPipeline wires every collaborator from the loaded configuration.
// Optional collaborators that are not configured are left out.
func buildPipeline(ctx context.Context, dryRun bool, log zerolog.Logger) (*pipelineDeps, error) {
	deps := &pipelineDeps{registry: prometheus.NewRegistry()}

	enricher, err := enrich.NewFromFile(cfg.EnrichHeuristicsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichment heuristics: %w", err)
	}

	store, err := storage.NewSQLiteStorage(ctx, cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	deps.closers = append(deps.closers, store.Close)

	scorer := newScorer(ctx, log)
	if c := scorer.closer; c != nil {
		deps.closers = append(deps.closers, c)
	}

	var poster services.BillPoster = erp.NewClient(cfg.ERPBaseURL, cfg.ERPTimeout)
	if dryRun || cfg.ERPDryRun {
		log.Info().Msg("ERP dry run: bills are not posted")
		poster = erp.DryRun{}
	}

	p, err := pipeline.New(pipeline.Config{
		ProcessedDir:     cfg.ProcessedDir,
		RejectsDir:       cfg.RejectsDir,
		DefaultGLAccount: cfg.DefaultGLAccount,
	}, pipeline.Deps{
		Enricher:  enricher,
		Scorer:    scorer.Scorer,
		Explainer: explain.NewFromAPIKey(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		Poster:    poster,
		History:   store,
		Metrics:   metrics.NewPipeline(deps.registry),
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.pipeline = p
	return deps, nil
}

type scorerHandle struct {
	*anomaly.Scorer
	closer func() error
}

// newScorer connects to REDIS_URL. An unset URL yields a scorer that always
// returns 0; an unreachable server is logged and treated the same way.
func newScorer(ctx context.Context, log zerolog.Logger) scorerHandle {
	client, err := anomaly.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, anomaly scores disabled")
		return scorerHandle{Scorer: anomaly.NewScorer(nil)}
	}
	if client == nil {
		return scorerHandle{Scorer: anomaly.NewScorer(nil)}
	}
	return scorerHandle{
		Scorer: anomaly.NewScorer(anomaly.NewRedisHistory(client)),
		closer: client.Close,
	}
}

// commandContext returns a context cancelled on SIGINT/SIGTERM or, when
// timeout is positive, after timeout.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	return ctx, func() {
		stop()
		cancel()
	}
}
