package schema

import (
	"errors"
	"sort"
	"sync"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// ErrUnknownCheck reports a check name missing from the Registry.
var ErrUnknownCheck = errors.New("schema: unknown check")

// Registry maps check names used in definitions to implementations.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]validation.CheckFunc
	async  map[string]validation.AsyncCheck
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		checks: map[string]validation.CheckFunc{},
		async:  map[string]validation.AsyncCheck{},
	}
}

// RegisterCheck adds or replaces a synchronous check.
func (r *Registry) RegisterCheck(name string, fn validation.CheckFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = fn
	return r
}

// RegisterAsync adds or replaces an asynchronous check under check.Name.
func (r *Registry) RegisterAsync(check validation.AsyncCheck) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.async[check.Name] = check
	return r
}

// Check returns the synchronous check registered under name.
func (r *Registry) Check(name string) (validation.Check, bool) {
	if r == nil {
		return validation.Check{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.checks[name]
	return validation.Check{Name: name, Fn: fn}, ok
}

// Async returns the asynchronous check registered under name.
func (r *Registry) Async(name string) (validation.AsyncCheck, bool) {
	if r == nil {
		return validation.AsyncCheck{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	check, ok := r.async[name]
	return check, ok
}

// Names lists every registered check name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checks)+len(r.async))
	for name := range r.checks {
		names = append(names, name)
	}
	for name := range r.async {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
