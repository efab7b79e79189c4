package normalize

import (
	"sort"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"golang.org/x/exp/maps"
)

const (
	bytesPerKiB = 1 << 10
	bytesPerMiB = 1 << 20
)

// classifyComplexity scores an artifact by resource count, byte size and
// technology spread, then buckets the score. The thresholds are tuned so
// a handful of resources in one file stays LOW while multi-technology
// estates land in HIGH.
func classifyComplexity(resourceCount, byteSize, technologies int) domain.Complexity {
	score := 0

	switch {
	case resourceCount > 100:
		score += 3
	case resourceCount > 50:
		score += 2
	case resourceCount > 10:
		score++
	}

	switch {
	case byteSize > bytesPerMiB:
		score += 3
	case byteSize > 512*bytesPerKiB:
		score += 2
	case byteSize > 100*bytesPerKiB:
		score++
	}

	if technologies > 3 {
		technologies = 3
	}
	score += technologies

	switch {
	case score >= 7:
		return domain.ComplexityHigh
	case score >= 4:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityLow
	}
}

type technologyMarker struct {
	technology string
	markers    []string
}

var technologyMarkers = []technologyMarker{
	{"cloudformation", []string{"AWSTemplateFormatVersion", `"AWS::`, "AWS::"}},
	{"terraform", []string{`resource "`, "provider \"", "terraform {"}},
	{"cdk", []string{"aws-cdk-lib", "aws_cdk", "@aws-cdk/"}},
	{"kubernetes", []string{"apiVersion:", "kind: Deployment", "kind: Pod", "kind: Service"}},
	{"serverless", []string{"AWS::Serverless", "serverless.yml", "sam-app"}},
	{"docker", []string{"FROM ", "docker_image", "AWS::ECS::"}},
	{"azure", []string{"Microsoft.", "azurerm_", "Azure::"}},
}

// detectTechnologies scans for well-known format markers. The source kind
// itself always counts as one detected technology.
func detectTechnologies(raw []byte, kind domain.SourceKind) []string {
	text := string(raw)
	found := map[string]struct{}{}

	switch kind {
	case domain.SourceCloudFormation:
		found["cloudformation"] = struct{}{}
	case domain.SourceTerraform:
		found["terraform"] = struct{}{}
	case domain.SourceCDK:
		found["cdk"] = struct{}{}
		found["cloudformation"] = struct{}{}
	case domain.SourceLiveScan:
		found["live-scan"] = struct{}{}
	}

	for _, tm := range technologyMarkers {
		for _, marker := range tm.markers {
			if strings.Contains(text, marker) {
				found[tm.technology] = struct{}{}
				break
			}
		}
	}

	technologies := maps.Keys(found)
	sort.Strings(technologies)
	return technologies
}
