package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// Filter narrows ListFrameworks. The zero value matches everything.
type Filter struct {
	Status domain.FrameworkStatus
}

// Registry is the read path the analysis pipeline sees. Frameworks are
// immutable once registered; nothing mutates rule definitions mid-run.
type Registry interface {
	GetFramework(ctx context.Context, id string) (domain.Framework, error)
	ListFrameworks(ctx context.Context, filter Filter) ([]domain.Framework, error)
}

// MemoryRegistry keeps frameworks in process memory. It is the default
// backing for CLI runs and tests; server deployments layer a database
// store behind the same interface.
type MemoryRegistry struct {
	mu         sync.RWMutex
	frameworks map[string]domain.Framework
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		frameworks: make(map[string]domain.Framework),
	}
}

// Register validates and stores a framework. Invalid definitions are
// rejected here so evaluation never encounters them.
func (r *MemoryRegistry) Register(framework domain.Framework) error {
	if err := Validate(framework); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.frameworks[framework.ID]; exists {
		return fmt.Errorf("framework %q is already registered", framework.ID)
	}
	r.frameworks[framework.ID] = framework
	return nil
}

func (r *MemoryRegistry) GetFramework(_ context.Context, id string) (domain.Framework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	framework, exists := r.frameworks[id]
	if !exists {
		return domain.Framework{}, fmt.Errorf("framework %q: %w", id, domain.ErrFrameworkNotFound)
	}
	return framework, nil
}

func (r *MemoryRegistry) ListFrameworks(_ context.Context, filter Filter) ([]domain.Framework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Framework, 0, len(r.frameworks))
	for _, framework := range r.frameworks {
		if filter.Status != "" && framework.Status != filter.Status {
			continue
		}
		out = append(out, framework)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
