package access

import (
	"os"
	"sync"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Policy answers role checks for custody transitions. A role is satisfied
// either record scoped (the record's own buyer, seller, arbiter) or
// statically (a global allow-list, e.g. platform operators). A failed check
// surfaces as ErrNotAuthorized in the caller and aborts before any
// mutation.
type Policy struct {
	mu     sync.RWMutex
	static map[state.Role][]string
}

// NewPolicy returns a policy with no static grants.
func NewPolicy() *Policy {
	return &Policy{
		static: make(map[state.Role][]string),
	}
}

// policyFile is the YAML shape for static role sets.
type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPolicy reads static role sets from a YAML file.
func LoadPolicy(path string) (*Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read policy file")
	}

	var file policyFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, errors.Wrap(err, "Failed to parse policy file")
	}

	policy := NewPolicy()
	for role, addresses := range file.Roles {
		for _, address := range addresses {
			policy.Grant(state.Role(role), address)
		}
	}

	return policy, nil
}

// Grant adds an address to a static role set.
func (p *Policy) Grant(role state.Role, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.static[role] = append(p.static[role], address)
}

// Revoke removes an address from a static role set.
func (p *Policy) Revoke(role state.Role, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	addresses := p.static[role]
	for i, a := range addresses {
		if a == address {
			p.static[role] = append(addresses[:i], addresses[i+1:]...)
			return
		}
	}
}

// HasRole reports whether the caller holds the role, either scoped to the
// given record or through a static grant. The record may be nil for purely
// static checks.
func (p *Policy) HasRole(caller string, role state.Role, rec *state.CustodyRecord) bool {
	if len(caller) == 0 {
		return false
	}

	if rec != nil && rec.Party(role) == caller {
		return true
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, address := range p.static[role] {
		if address == caller {
			return true
		}
	}

	return false
}
