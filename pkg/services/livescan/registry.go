package livescan

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"golang.org/x/exp/maps"
)

// CollectorFactory builds a collector bound to one scan target.
type CollectorFactory func(ctx context.Context, target domain.LiveAccountTarget) (Collector, error)

// Registry manages collector factories by service name.
type Registry interface {
	// Register adds a new collector factory
	Register(service string, factory CollectorFactory) error
	// Create instantiates a collector for the specified service and target
	Create(ctx context.Context, service string, target domain.LiveAccountTarget) (Collector, error)
	// ListServices returns the registered service names, sorted
	ListServices() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]CollectorFactory
}

func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]CollectorFactory),
	}
}

// DefaultRegistry returns a registry with every built-in AWS collector
// registered. Azure collectors are opt-in; see AzureCostFactory.
func DefaultRegistry() Registry {
	r := NewRegistry()
	_ = r.Register(ServiceS3, S3Factory)
	_ = r.Register(ServiceEC2, EC2Factory)
	_ = r.Register(ServiceRDS, RDSFactory)
	_ = r.Register(ServiceCost, CostPostureFactory)
	return r
}

func (r *registry) Register(service string, factory CollectorFactory) error {
	if service == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[service]; exists {
		return fmt.Errorf("service %q is already registered", service)
	}

	r.factories[service] = factory
	return nil
}

func (r *registry) Create(ctx context.Context, service string, target domain.LiveAccountTarget) (Collector, error) {
	r.mu.RLock()
	factory, exists := r.factories[service]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("service %q is not registered", service)
	}

	return factory(ctx, target)
}

func (r *registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := maps.Keys(r.factories)
	sort.Strings(services)
	return services
}
