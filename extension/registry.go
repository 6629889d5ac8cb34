// Package extension keeps the set of integrations an embedding application
// registered, together with the Go types their payloads decode into.
package extension

import (
	"sort"
	"sync"

	"github.com/viant/taskvault/model/types"
	"github.com/viant/x"
)

// Integrations is the registry the engine and watcher loops resolve
// collaborators from.
type Integrations struct {
	types    *x.Registry
	services map[string]types.Integration
	mux      sync.RWMutex
}

// Register adds an integration; a later registration under the same name
// replaces the earlier one.
func (r *Integrations) Register(integration types.Integration) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.services[integration.Name()] = integration
}

// Lookup returns the integration registered under name, or nil.
func (r *Integrations) Lookup(name string) types.Integration {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.services[name]
}

// Names returns every registered integration name, sorted for stable
// iteration.
func (r *Integrations) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types returns the payload type registry.
func (r *Integrations) Types() *x.Registry {
	return r.types
}

// RegisterType registers a payload Go type, letting integrations decode
// their task payloads into concrete structs.
func (r *Integrations) RegisterType(payloadType *x.Type) {
	if payloadType != nil {
		r.types.Register(payloadType)
	}
}

// NewIntegrations creates a registry pre-populated with payload types.
func NewIntegrations(payloadTypes ...*x.Type) *Integrations {
	ret := &Integrations{
		types:    x.NewRegistry(),
		services: make(map[string]types.Integration),
	}
	for _, t := range payloadTypes {
		ret.RegisterType(t)
	}
	return ret
}
