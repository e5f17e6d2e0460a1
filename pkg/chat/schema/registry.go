package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ib-77/chatflow/pkg/chat"
	"github.com/ib-77/chatflow/pkg/flow"
)

// StageConstructor makes a stage factory for a stage registered under name.
type StageConstructor func(name string) flow.StageFactory

// Registry maps stage refs used in schemas to their constructors.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]StageConstructor
}

func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]StageConstructor)}
}

// DefaultRegistry returns a registry holding the built-in stages:
// classifier, responder, upper and trim.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("classifier", chat.NewClassifier)
	r.Register("responder", chat.NewResponder)
	r.Register("upper", textStage(strings.ToUpper))
	r.Register("trim", textStage(strings.TrimSpace))
	return r
}

func textStage(fn func(string) string) StageConstructor {
	return func(name string) flow.StageFactory {
		return flow.StageFunc(name, func(_ context.Context, item flow.Item) (flow.Item, error) {
			return item.WithText(fn(item.Text())), nil
		})
	}
}

// Register adds or replaces the constructor behind ref.
func (r *Registry) Register(ref string, ctor StageConstructor) {
	if ref == "" || ctor == nil {
		panic(fmt.Sprintf("schema: invalid registration for ref %q", ref))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[ref] = ctor
}

func (r *Registry) Lookup(ref string) (StageConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.stages[ref]
	return ctor, ok
}

// Refs returns the registered refs, sorted.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]string, 0, len(r.stages))
	for ref := range r.stages {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs
}
