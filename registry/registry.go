// Package registry holds the named backend modules the gateway can reach.
//
// A Registry is built once at startup from an ordered list of bindings and is
// read-only afterwards, so it is safe for concurrent use without locking.
package registry

import (
	"fmt"
	"strings"

	"github.com/c360/nodegate/errors"
)

// Binding associates a module name with the base URL of the service behind it.
type Binding struct {
	Name    string `json:"name" yaml:"name"`
	BaseURL string `json:"url" yaml:"url"`
}

// Registry is an ordered, immutable mapping from module name to base URL.
type Registry struct {
	order []string
	urls  map[string]string
}

// New creates a registry from bindings, preserving their order.
// Names are case-sensitive and must be unique; URLs must be non-empty.
func New(bindings ...Binding) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(bindings)),
		urls:  make(map[string]string, len(bindings)),
	}

	for i, b := range bindings {
		if b.Name == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "New",
				fmt.Sprintf("binding %d has an empty module name", i))
		}
		if strings.TrimSpace(b.BaseURL) == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "New",
				fmt.Sprintf("module '%s' has an empty base URL", b.Name))
		}
		if _, exists := r.urls[b.Name]; exists {
			return nil, errors.WrapInvalid(errors.ErrDuplicateModule, "Registry", "New",
				fmt.Sprintf("module '%s' registered twice", b.Name))
		}

		r.order = append(r.order, b.Name)
		r.urls[b.Name] = b.BaseURL
	}

	return r, nil
}

// MustNew is like New but panics on invalid bindings. Intended for tests and
// static wiring.
func MustNew(bindings ...Binding) *Registry {
	r, err := New(bindings...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the base URL registered for name, exactly as it was stored.
func (r *Registry) Get(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	url, ok := r.urls[name]
	return url, ok
}

// Names returns module names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return []string{}
	}
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Bindings returns every binding in registration order.
func (r *Registry) Bindings() []Binding {
	if r == nil {
		return []Binding{}
	}
	out := make([]Binding, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Binding{Name: name, BaseURL: r.urls[name]})
	}
	return out
}
