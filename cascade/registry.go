package cascade

import (
	"github.com/BaSui01/lexflow/retrieval"
)

// Capability names a kind of evidence a provider can supply.
type Capability string

const (
	// CapabilityStatuteSearch serves statute and bare-act lookups.
	CapabilityStatuteSearch Capability = "statute_search"
	// CapabilityCaseSearch serves case-law and judgment lookups.
	CapabilityCaseSearch Capability = "case_search"
	// CapabilityGeneralSearch serves anything else.
	CapabilityGeneralSearch Capability = "general_search"
)

// Registry maps capabilities to ordered provider lists. It is built once at
// startup and read-only afterwards; ordering is cascade priority.
type Registry struct {
	providers map[Capability][]retrieval.Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Capability][]retrieval.Provider)}
}

// Register appends providers to a capability in priority order.
func (r *Registry) Register(cap Capability, providers ...retrieval.Provider) *Registry {
	r.providers[cap] = append(r.providers[cap], providers...)
	return r
}

// Providers returns the ordered provider list for a capability, falling back
// to the general list when the capability has no dedicated providers.
func (r *Registry) Providers(cap Capability) []retrieval.Provider {
	if ps := r.providers[cap]; len(ps) > 0 {
		return ps
	}
	return r.providers[CapabilityGeneralSearch]
}

// Capabilities lists the registered capabilities.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.providers))
	for c := range r.providers {
		out = append(out, c)
	}
	return out
}
