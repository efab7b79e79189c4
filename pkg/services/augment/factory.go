package augment

import (
	"context"
	"fmt"
)

// Options carries provider credentials. Endpoint and DeploymentID are
// only meaningful for the Azure backend.
type Options struct {
	APIKey       string
	Model        string
	Endpoint     string
	DeploymentID string
}

// NewProvider builds the configured reasoning backend. An empty or
// "none" provider name disables augmentation and returns nil without
// error; callers must handle a nil provider.
func NewProvider(ctx context.Context, providerName string, opts Options) (Provider, error) {
	switch providerName {
	case "", "none":
		return nil, nil
	case "gemini":
		return NewGeminiProvider(ctx, opts.APIKey, opts.Model)
	case "azure-openai":
		return NewAzureOpenAIProvider(opts.Endpoint, opts.APIKey, opts.DeploymentID)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
