// Package scrape wires the fetcher, providers, orchestrator and ingest
// service from configuration. Both the API and the worker share this setup.
package scrape

import (
	"log/slog"

	"zingo/backend/internal/config"
	"zingo/backend/internal/integrations"
	"zingo/backend/internal/repository"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/fetch"
	"zingo/backend/internal/scrape/ingest"
	"zingo/backend/internal/scrape/pincode"
	"zingo/backend/internal/scrape/providers"
)

// BuildService assembles the full scrape-and-ingest pipeline. s3 may be nil,
// in which case posters keep their upstream URLs.
func BuildService(cfg *config.Config, repo *repository.Repository, s3 *integrations.S3Client, logger *slog.Logger) *ingest.Service {
	if logger == nil {
		logger = slog.Default()
	}
	scrapeCfg := cfg.Scrape
	loc := scrapeCfg.Location()

	fetcher := fetch.NewHTTPFetcher(logger, fetch.HTTPFetcherConfig{
		Timeout:   scrapeCfg.FetchTimeout,
		UserAgent: scrapeCfg.UserAgent,
	})

	var providerList []core.Provider
	if scrapeCfg.Providers.BookMyShow.Enabled {
		providerList = append(providerList, providers.NewBookMyShowProvider(
			fetcher, scrapeCfg.Providers.BookMyShow, scrapeCfg.MaxDetailPages, scrapeCfg.PostalCodeCityMap, loc, logger))
	}
	if scrapeCfg.Providers.District.Enabled {
		providerList = append(providerList, providers.NewDistrictProvider(
			fetcher, scrapeCfg.Providers.District, scrapeCfg.MaxDetailPages, scrapeCfg.PostalCodeCityMap, loc, logger))
	}
	if scrapeCfg.Providers.MovieGlu.Enabled {
		providerList = append(providerList, providers.NewMovieGluProvider(
			fetcher, scrapeCfg.Providers.MovieGlu, scrapeCfg.PostalCodeCityMap, loc, logger))
	}
	orchestrator := core.NewOrchestrator(logger, providerList...)

	lookup := pincode.NewClient(scrapeCfg.PincodeLookup, scrapeCfg.UserAgent, logger)

	var posterMirror ingest.PosterMirror
	if s3 != nil {
		posterMirror = integrations.NewPosterStore(s3, logger)
	}

	return ingest.NewService(orchestrator, repo, lookup, posterMirror, scrapeCfg, logger)
}
