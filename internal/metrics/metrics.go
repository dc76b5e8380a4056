// Package metrics registers the Prometheus collectors of the scrape
// pipeline on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRuns counts provider scrape attempts by outcome.
	ProviderRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_provider_runs_total",
		Help: "Provider scrape attempts by source and outcome.",
	}, []string{"source", "outcome"})

	// EntitiesUpserted counts canonical rows written during ingest.
	EntitiesUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_entities_upserted_total",
		Help: "Canonical entities upserted during ingest, by entity kind.",
	}, []string{"entity"})

	// SyncRuns counts full scrape-and-ingest cycles by outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_sync_runs_total",
		Help: "Scrape-and-ingest cycles by outcome.",
	}, []string{"outcome"})
)
