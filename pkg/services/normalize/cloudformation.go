package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	sigyaml "sigs.k8s.io/yaml"
)

type cfnTemplate struct {
	Resources map[string]json.RawMessage `json:"Resources"`
}

type cfnResource struct {
	Type       string          `json:"Type"`
	Properties map[string]any  `json:"Properties"`
	DependsOn  json.RawMessage `json:"DependsOn"`
}

// parseCloudFormation reads a CloudFormation template in JSON or YAML
// form. The top-level Resources map is the source of truth; unknown
// resource types are kept as-is so rules can still match on them.
func parseCloudFormation(raw []byte, kind domain.SourceKind) ([]domain.ResourceDefinition, error) {
	doc := raw
	if !looksLikeJSON(raw) {
		converted, err := sigyaml.YAMLToJSON(raw)
		if err != nil {
			return nil, &domain.ParseError{
				SourceKind: kind,
				Detail:     fmt.Sprintf("invalid YAML: %v", err),
				Err:        err,
			}
		}
		doc = converted
	}

	var tmpl cfnTemplate
	if err := json.Unmarshal(doc, &tmpl); err != nil {
		return nil, &domain.ParseError{
			SourceKind: kind,
			Detail:     fmt.Sprintf("invalid template document: %v", err),
			Err:        err,
		}
	}

	names := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	resources := make([]domain.ResourceDefinition, 0, len(tmpl.Resources))
	for _, name := range names {
		var res cfnResource
		if err := json.Unmarshal(tmpl.Resources[name], &res); err != nil {
			// Tolerate entries that are syntactically valid JSON but not
			// resource-shaped; rules cannot match what has no type.
			continue
		}
		props := res.Properties
		if props == nil {
			props = map[string]any{}
		}
		resources = append(resources, domain.ResourceDefinition{
			Type:         res.Type,
			Name:         name,
			Properties:   props,
			Dependencies: decodeDependsOn(res.DependsOn),
		})
	}
	return resources, nil
}

// decodeDependsOn accepts the single-string and list forms CloudFormation
// allows for DependsOn.
func decodeDependsOn(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func looksLikeJSON(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
