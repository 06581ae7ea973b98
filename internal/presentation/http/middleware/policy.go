package middleware

import (
	"sort"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
)

// Capability names one guarded action
type Capability string

const (
	CapTransactionsCreate    Capability = "transactions:create"
	CapTransactionsView      Capability = "transactions:view"
	CapLabUpdate             Capability = "lab:update"
	CapLabRelease            Capability = "lab:release"
	CapReconciliationSubmit  Capability = "reconciliation:submit"
	CapReconciliationApprove Capability = "reconciliation:approve"
	CapReceiptsPrint         Capability = "receipts:print"
)

// CapabilitySet is the set of capabilities granted to one caller
type CapabilitySet map[Capability]struct{}

// Has reports whether c is granted
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the granted capabilities sorted by name
func (s CapabilitySet) List() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// Policy maps staff roles to capabilities
type Policy struct {
	roles map[string][]Capability
}

// NewPolicy creates a policy from an explicit role table
func NewPolicy(roles map[string][]Capability) *Policy {
	return &Policy{roles: roles}
}

// DefaultPolicy is the clinic's standing role table. Only admins approve
// reconciliation corrections.
func DefaultPolicy() *Policy {
	return NewPolicy(map[string][]Capability{
		entity.RoleAdmin: {
			CapTransactionsCreate,
			CapTransactionsView,
			CapLabUpdate,
			CapLabRelease,
			CapReconciliationSubmit,
			CapReconciliationApprove,
			CapReceiptsPrint,
		},
		entity.RoleCashier: {
			CapTransactionsCreate,
			CapTransactionsView,
			CapReconciliationSubmit,
			CapReceiptsPrint,
		},
		entity.RoleLab: {
			CapTransactionsView,
			CapLabUpdate,
			CapLabRelease,
		},
	})
}

// Grant returns the union of capabilities of roles; unknown roles grant nothing
func (p *Policy) Grant(roles []string) CapabilitySet {
	set := CapabilitySet{}
	for _, r := range roles {
		for _, c := range p.roles[r] {
			set[c] = struct{}{}
		}
	}
	return set
}
