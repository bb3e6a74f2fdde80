package checks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-pulse/pkg/targets"
)

// checkRegistry implements Registry with type-keyed checks.
type checkRegistry struct {
	byType map[string]Check
	mu     sync.RWMutex
}

// NewRegistry builds a registry for the provided check implementations keyed by type.
func NewRegistry(checks ...Check) Registry {
	reg := &checkRegistry{byType: make(map[string]Check)}
	for _, c := range checks {
		reg.register(c)
	}
	return reg
}

func (r *checkRegistry) register(c Check) {
	if c == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(c.Type()))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.byType[key] = c
	r.mu.Unlock()
}

// CheckFor selects the check for the given target. Targets without a check
// configured get the no-op check.
func (r *checkRegistry) CheckFor(tgt targets.Target) (Check, error) {
	key := strings.ToLower(strings.TrimSpace(tgt.Check))
	if key == "" || key == TypeNone {
		return noopCheck{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.byType[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no check registered for type %q (target %q)", tgt.Check, tgt.ID)
}

// DefaultRegistry wires up known checks.
func DefaultRegistry() Registry {
	return NewRegistry(
		jsonKeyCheck{},
		htmlTitleCheck{},
	)
}

const TypeNone = "none"

type noopCheck struct{}

func (noopCheck) Type() string { return TypeNone }

func (noopCheck) Evaluate(targets.Target, any) error { return nil }
