package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// liveResource is the wire form collectors emit for a deployed resource.
type liveResource struct {
	ResourceType string         `json:"resourceType"`
	Name         string         `json:"name"`
	ARN          string         `json:"arn,omitempty"`
	Region       string         `json:"region,omitempty"`
	Properties   map[string]any `json:"properties"`
}

type liveScanDocument struct {
	Resources []liveResource `json:"resources"`
}

// parseLiveScan remaps collector output into resource definitions. Live
// resources carry no file positions, only ARNs.
func parseLiveScan(raw []byte) ([]domain.ResourceDefinition, error) {
	var descriptors []liveResource
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		var doc liveScanDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, &domain.ParseError{
				SourceKind: domain.SourceLiveScan,
				Detail:     fmt.Sprintf("invalid scan payload: %v", err),
				Err:        err,
			}
		}
		descriptors = doc.Resources
	}

	resources := make([]domain.ResourceDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		props := d.Properties
		if props == nil {
			props = map[string]any{}
		}
		if d.Region != "" {
			if _, exists := props["Region"]; !exists {
				props["Region"] = d.Region
			}
		}
		resources = append(resources, domain.ResourceDefinition{
			Type:       d.ResourceType,
			Name:       d.Name,
			Properties: props,
			Location:   domain.SourceLocation{ARN: d.ARN},
		})
	}
	return resources, nil
}
