package livescan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// DefaultServices is the collector set scanned when a caller does not
// narrow the selection.
var DefaultServices = []string{ServiceS3, ServiceEC2, ServiceRDS, ServiceCost}

// FetcherConfig selects which collectors a fetcher runs per target.
type FetcherConfig struct {
	Registry Registry
	Services []string
}

// Fetcher scans a live account and renders the findings as a single
// artifact the normalizer ingests as a LIVE_SCAN document.
type Fetcher struct {
	registry Registry
	services []string
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if len(cfg.Services) == 0 {
		cfg.Services = DefaultServices
	}
	return &Fetcher{
		registry: cfg.Registry,
		services: cfg.Services,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, target domain.Target) ([]byte, domain.SourceKind, error) {
	account, ok := target.(domain.LiveAccountTarget)
	if !ok {
		return nil, "", fmt.Errorf("live scanner cannot serve %T", target)
	}
	logger := zerolog.Ctx(ctx)

	doc := Document{Resources: []Descriptor{}}
	for _, service := range f.services {
		collector, err := f.registry.Create(ctx, service, account)
		if err != nil {
			return nil, "", err
		}

		descriptors, err := collector.Collect(ctx, account.Regions)
		if err != nil {
			return nil, "", err
		}

		logger.Debug().
			Str("service", service).
			Str("target", accountLabel(account)).
			Int("resources", len(descriptors)).
			Msg("collected live resources")
		doc.Resources = append(doc.Resources, descriptors...)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode scan document: %w", err)
	}
	return raw, domain.SourceLiveScan, nil
}
