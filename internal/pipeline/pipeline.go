// Package pipeline orchestrates one analysis end to end: cache lookup,
// classification, aggregation, feature extraction, scoring, envelope
// assembly, cache store. Concurrent requests for the same address collapse
// into a single flight.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/etherlens/etherlens/internal/aggregate"
	"github.com/etherlens/etherlens/internal/cache"
	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/classify"
	"github.com/etherlens/etherlens/internal/features"
	"github.com/etherlens/etherlens/internal/metrics"
	"github.com/etherlens/etherlens/internal/scan"
	"github.com/etherlens/etherlens/internal/scoring"
)

// Config configures the orchestrator.
type Config struct {
	// AnalyzeTimeout bounds one full pipeline run on cache miss.
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
}

// DefaultConfig returns orchestrator defaults.
func DefaultConfig() Config {
	return Config{AnalyzeTimeout: 25 * time.Second}
}

// Pipeline wires the analysis stages together. Data flows strictly
// downward; no stage calls back into an earlier one.
type Pipeline struct {
	config     Config
	classifier *classify.Classifier
	aggregator *aggregate.Aggregator
	engine     *scoring.Engine
	cache      *cache.Cache
	metrics    *metrics.Metrics

	flights singleflight.Group
}

// New creates a pipeline over its stages.
func New(config Config, classifier *classify.Classifier, aggregator *aggregate.Aggregator, engine *scoring.Engine, resultCache *cache.Cache, m *metrics.Metrics) *Pipeline {
	if config.AnalyzeTimeout == 0 {
		config.AnalyzeTimeout = DefaultConfig().AnalyzeTimeout
	}
	return &Pipeline{
		config:     config,
		classifier: classifier,
		aggregator: aggregator,
		engine:     engine,
		cache:      resultCache,
		metrics:    m,
	}
}

// Analyze produces the risk assessment for a raw address string. Repeated
// calls within the cache TTL are idempotent and served from cache;
// concurrent calls for the same address share one computation.
func (p *Pipeline) Analyze(ctx context.Context, rawAddress string) (*scan.Result, error) {
	addr, err := chain.ParseAddress(rawAddress)
	if err != nil {
		return nil, newError(ErrInvalidInput, "malformed address", err)
	}

	if r, ok := p.cache.Lookup(addr); ok {
		p.metrics.CacheHits.Inc()
		return r, nil
	}
	p.metrics.CacheMisses.Inc()

	// The flight runs on a context detached from this caller: if the
	// caller gives up, other waiters on the same address still get their
	// result. The overall analyze budget bounds it instead.
	ch := p.flights.DoChan(addr.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.AnalyzeTimeout)
		defer cancel()
		return p.run(fctx, addr)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*scan.Result), nil
	case <-ctx.Done():
		return nil, newError(ErrTimeout, "analysis abandoned by caller", ctx.Err())
	}
}

func (p *Pipeline) run(ctx context.Context, addr chain.Address) (*scan.Result, error) {
	start := time.Now()

	kind, err := p.classifier.Classify(ctx, addr)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, newError(ErrTimeout, "classification timed out", err)
		case errors.Is(err, classify.ErrIndeterminate):
			return nil, newError(ErrIndeterminate, "could not determine address kind", err)
		default:
			return nil, newError(ErrInternal, "classification failed", err)
		}
	}

	// A previous flight may have stored this address while we classified.
	if r, ok := p.cache.Get(addr, kind); ok {
		return r, nil
	}

	bundle, err := p.aggregator.Collect(ctx, addr, kind)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(ErrTimeout, "aggregation timed out", err)
		}
		return nil, newError(ErrUpstream, "all data sources failed", err)
	}
	for _, slot := range bundle.DegradedSlots() {
		p.metrics.SlotFailures.WithLabelValues(slot).Inc()
	}

	set := features.Extract(bundle)
	assessment := p.engine.Score(ctx, set)
	if p.engine.ModelEnabled() && !assessment.ModelUsed {
		p.metrics.ModelFallbacks.Inc()
	}

	result := scan.Build(set, assessment, bundle.CollectedAt)
	p.cache.Store(result)

	elapsed := time.Since(start)
	p.metrics.ScanDuration.Observe(elapsed.Seconds())
	p.metrics.ScansTotal.WithLabelValues(result.Type, result.RiskTier).Inc()
	log.Info().
		Str("address", addr.String()).
		Str("kind", result.Type).
		Str("tier", result.RiskTier).
		Float64("score", result.RiskScore).
		Dur("elapsed", elapsed).
		Msg("pipeline: analysis complete")

	return result, nil
}
