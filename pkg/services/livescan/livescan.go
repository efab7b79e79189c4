package livescan

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

const (
	DefaultRegion = "us-east-1" // Default region if the target has no region scope
)

// Descriptor is one deployed resource in the live-scan wire form the
// normalizer ingests.
type Descriptor struct {
	ResourceType string         `json:"resourceType"`
	Name         string         `json:"name"`
	ARN          string         `json:"arn,omitempty"`
	Region       string         `json:"region,omitempty"`
	Properties   map[string]any `json:"properties"`
}

// Document is the payload a scan produces for one account.
type Document struct {
	Resources []Descriptor `json:"resources"`
}

// Collector gathers one service's deployed resources. Collectors are
// bound to a single scan target by their factory.
type Collector interface {
	Service() string
	Collect(ctx context.Context, regions []string) ([]Descriptor, error)
}

func loadAWSConfig(ctx context.Context, target domain.LiveAccountTarget) (awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithDefaultRegion(DefaultRegion),
	}
	if target.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(target.Profile))
	}
	if len(target.Regions) > 0 {
		opts = append(opts, config.WithRegion(target.Regions[0]))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

func regionsOrDefault(regions []string, fallback string) []string {
	if len(regions) > 0 {
		return regions
	}
	if fallback == "" {
		fallback = DefaultRegion
	}
	return []string{fallback}
}
