// Package contract holds the OperationContract set for each registered
// provider and combines source/target contracts into a single namespaced
// set for graph construction, per the contract registry component.
package contract

import (
	"fmt"
	"sort"
)

// OperationContract describes one operation: its identifier, the
// identifiers it depends on (within the same provider), whether it is
// required for a complete migration, the parameter names it reads from the
// operation context, an optional relative cost hint, and whether it
// mutates remote state.
type OperationContract struct {
	ID           string
	DependsOn    []string
	Required     bool
	ParamNames   []string
	CostHint     float64
	Mutates      bool
}

// Registry stores contract sets per provider ID.
type Registry struct {
	byProvider map[string]map[string]OperationContract
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byProvider: make(map[string]map[string]OperationContract)}
}

// Register replaces the contract set for providerID.
func (r *Registry) Register(providerID string, contracts []OperationContract) {
	set := make(map[string]OperationContract, len(contracts))
	for _, c := range contracts {
		set[c.ID] = c
	}
	r.byProvider[providerID] = set
}

// Lookup returns the contract for (providerID, opID).
func (r *Registry) Lookup(providerID, opID string) (OperationContract, bool) {
	set, ok := r.byProvider[providerID]
	if !ok {
		return OperationContract{}, false
	}
	c, ok := set[opID]
	return c, ok
}

// Enumerate returns every contract registered for providerID, sorted by ID.
func (r *Registry) Enumerate(providerID string) []OperationContract {
	set := r.byProvider[providerID]
	out := make([]OperationContract, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TargetNamespace prefixes a target-provider operation ID so it cannot
// collide with a source operation ID of the same name.
func TargetNamespace(opID string) string {
	return "target:" + opID
}

// Combined returns the union of sourceProviderID's contracts (identifiers
// unchanged) and targetProviderID's contracts (identifiers namespaced via
// TargetNamespace), plus any orchestrator-injected glue contracts. Source
// and target dependency lists are rewritten consistently: a target
// contract's DependsOn entries are also namespaced, since they refer to
// other target operations.
func (r *Registry) Combined(sourceProviderID, targetProviderID string, glue []OperationContract) map[string]OperationContract {
	combined := make(map[string]OperationContract)

	for _, c := range r.Enumerate(sourceProviderID) {
		combined[c.ID] = c
	}
	for _, c := range r.Enumerate(targetProviderID) {
		namespaced := c
		namespaced.ID = TargetNamespace(c.ID)
		namespaced.DependsOn = make([]string, len(c.DependsOn))
		for i, d := range c.DependsOn {
			namespaced.DependsOn[i] = TargetNamespace(d)
		}
		combined[namespaced.ID] = namespaced
	}
	for _, c := range glue {
		combined[c.ID] = c
	}
	return combined
}

// Validate checks every contract's DependsOn entries resolve within the
// combined set, returning a descriptive error for the first gap found (or
// nil if the set is self-consistent). Graph-level cycle/missing-reference
// detection happens in package graph; this check catches typos before a
// graph is even built.
func Validate(combined map[string]OperationContract) error {
	ids := make([]string, 0, len(combined))
	for id := range combined {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, dep := range combined[id].DependsOn {
			if _, ok := combined[dep]; !ok {
				return fmt.Errorf("operation %q depends on unregistered operation %q", id, dep)
			}
		}
	}
	return nil
}
