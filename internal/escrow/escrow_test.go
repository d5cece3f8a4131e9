package escrow

import (
	"context"
	"testing"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/custody"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/tests"
)

func TestHappyPath(t *testing.T) {
	test := tests.New()
	defer test.TearDown()
	ctx := context.Background()

	deadline := state.Timestamp(test.Clock.Now().Nano() + 1000000)

	rec, err := Open(ctx, test.Registry, "buyer", "seller", "judge", 500, deadline, 2, "laptop", test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to open escrow : %s", err)
	}
	if rec.Kind != state.KindEscrow {
		t.Fatalf("Wrong kind : got %s", rec.Kind)
	}
	if rec.Status != state.StatusCreated {
		t.Fatalf("Wrong status : got %s, wanted created", rec.Status)
	}
	if rec.Party(state.RoleDepositor) != "buyer" || rec.Party(state.RoleBeneficiary) != "seller" {
		t.Fatalf("Wrong parties : %v", rec.Parties)
	}

	test.Ledger.SetBalance("buyer", 500)
	if _, err := Fund(ctx, test.Registry, test.Ledger, rec.ID, "buyer", 500, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to fund : %s", err)
	}

	released, err := Release(ctx, test.Registry, test.Ledger, test.Policy, rec.ID, "buyer", test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to release : %s", err)
	}
	if released.Status != state.StatusReleased {
		t.Fatalf("Wrong status : got %s, wanted released", released.Status)
	}
	if test.Ledger.Balance("seller") != 500 {
		t.Fatalf("Wrong seller balance : got %d, wanted 500", test.Ledger.Balance("seller"))
	}
}

func TestDisputedSplit(t *testing.T) {
	test := tests.New()
	defer test.TearDown()
	ctx := context.Background()

	deadline := state.Timestamp(test.Clock.Now().Nano() + 1000000)

	rec, err := Open(ctx, test.Registry, "buyer", "seller", "judge", 1000, deadline, 2, "laptop", test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to open escrow : %s", err)
	}

	test.Ledger.SetBalance("buyer", 1000)
	if _, err := Fund(ctx, test.Registry, test.Ledger, rec.ID, "buyer", 1000, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to fund : %s", err)
	}

	if _, err := Dispute(ctx, test.Registry, rec.ID, "seller", "buyer never paid shipping", test.Clock.Now()); err != nil {
		t.Fatalf("Failed to dispute : %s", err)
	}

	resolved, err := Resolve(ctx, test.Registry, test.Ledger, test.Policy, rec.ID, "judge",
		custody.ResolutionSplit, 50, "operator", test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to resolve : %s", err)
	}
	if resolved.Status != state.StatusSplit {
		t.Fatalf("Wrong status : got %s, wanted split", resolved.Status)
	}
	if test.Ledger.Balance("buyer") != 490 || test.Ledger.Balance("seller") != 490 ||
		test.Ledger.Balance("operator") != 20 {
		t.Fatalf("Wrong split : buyer %d, seller %d, operator %d",
			test.Ledger.Balance("buyer"), test.Ledger.Balance("seller"), test.Ledger.Balance("operator"))
	}
}
