package core

import (
	"context"
	"fmt"
	"log/slog"

	"zingo/backend/internal/metrics"
)

// Orchestrator runs a set of providers sequentially with failure isolation:
// one provider erroring or panicking never loses the results of the others.
type Orchestrator struct {
	providers []Provider
	log       *slog.Logger
}

func NewOrchestrator(log *slog.Logger, providers ...Provider) *Orchestrator {
	return &Orchestrator{providers: providers, log: log}
}

// RunAll scrapes every provider for req and returns the successful results
// in provider order. Failures are logged and counted, not propagated.
func (o *Orchestrator) RunAll(ctx context.Context, req ScrapeRequest) []ScrapeResult {
	results := make([]ScrapeResult, 0, len(o.providers))
	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			o.log.Warn("scrape_run_cancelled", "error", err)
			break
		}
		res, err := o.runOne(ctx, p, req)
		if err != nil {
			metrics.ProviderRuns.WithLabelValues(p.Source(), "error").Inc()
			o.log.Error("provider_scrape_failed", "source", p.Source(), "error", err)
			continue
		}
		metrics.ProviderRuns.WithLabelValues(p.Source(), "ok").Inc()
		o.log.Info("provider_scrape_done",
			"source", p.Source(),
			"venues", len(res.Venues),
			"events", len(res.Events),
			"showtimes", len(res.Showtimes))
		results = append(results, res)
	}
	return results
}

func (o *Orchestrator) runOne(ctx context.Context, p Provider, req ScrapeRequest) (res ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", p.Source(), r)
		}
	}()
	return p.Scrape(ctx, req)
}
