package access

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
)

func TestHasRole(t *testing.T) {
	policy := NewPolicy()

	rec := &state.CustodyRecord{
		Parties: map[state.Role]string{
			state.RoleDepositor:   "buyer",
			state.RoleBeneficiary: "seller",
		},
	}

	if !policy.HasRole("buyer", state.RoleDepositor, rec) {
		t.Fatalf("Record scoped role should match")
	}
	if policy.HasRole("seller", state.RoleDepositor, rec) {
		t.Fatalf("Wrong party should not match")
	}
	if policy.HasRole("", state.RoleDepositor, rec) {
		t.Fatalf("Empty caller should never match")
	}
	if policy.HasRole("buyer", state.RoleOperator, rec) {
		t.Fatalf("No static grant, no operator role")
	}

	policy.Grant(state.RoleOperator, "ops")
	if !policy.HasRole("ops", state.RoleOperator, rec) {
		t.Fatalf("Static grant should match")
	}
	if !policy.HasRole("ops", state.RoleOperator, nil) {
		t.Fatalf("Static grant should match without a record")
	}

	policy.Revoke(state.RoleOperator, "ops")
	if policy.HasRole("ops", state.RoleOperator, rec) {
		t.Fatalf("Revoked grant should not match")
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	body := `roles:
  operator:
    - ops1
    - ops2
  arbiter:
    - judge
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write policy file : %s", err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("Failed to load policy : %s", err)
	}

	if !policy.HasRole("ops1", state.RoleOperator, nil) {
		t.Errorf("ops1 should be an operator")
	}
	if !policy.HasRole("ops2", state.RoleOperator, nil) {
		t.Errorf("ops2 should be an operator")
	}
	if !policy.HasRole("judge", state.RoleArbiter, nil) {
		t.Errorf("judge should be an arbiter")
	}
	if policy.HasRole("ops1", state.RoleArbiter, nil) {
		t.Errorf("ops1 should not be an arbiter")
	}

	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Missing file should fail")
	}
}
