package ledger

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestTokenCustodian(t *testing.T) {
	ctx := context.Background()

	tokens := NewMemoryTokenLedger("mint", 1000)
	if err := tokens.Transfer(ctx, "alice", 300); err != nil {
		t.Fatalf("Failed to seed alice : %s", err)
	}

	custodian := NewTokenCustodian(tokens, "vault")

	if err := custodian.Collect(ctx, "alice", 200); err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	held, err := custodian.Held(ctx)
	if err != nil {
		t.Fatalf("Failed to read held : %s", err)
	}
	if held != 200 {
		t.Fatalf("Wrong held : got %d, wanted 200", held)
	}

	// Collect over balance fails.
	if err := custodian.Collect(ctx, "alice", 200); errors.Cause(err) != ErrInsufficientValue {
		t.Fatalf("Wanted ErrInsufficientValue, got %v", err)
	}

	payments := []Payment{
		{To: "bob", Amount: 150},
		{To: "carol", Amount: 50},
	}
	if err := custodian.Disburse(ctx, payments); err != nil {
		t.Fatalf("Failed to disburse : %s", err)
	}

	bob, _ := tokens.BalanceOf(ctx, "bob")
	carol, _ := tokens.BalanceOf(ctx, "carol")
	if bob != 150 || carol != 50 {
		t.Fatalf("Wrong balances : bob %d, carol %d", bob, carol)
	}
	held, _ = custodian.Held(ctx)
	if held != 0 {
		t.Fatalf("Vault should be empty : %d", held)
	}
}

func TestTokenCustodianClawBack(t *testing.T) {
	ctx := context.Background()

	tokens := NewMemoryTokenLedger("mint", 1000)
	if err := tokens.Transfer(ctx, "alice", 100); err != nil {
		t.Fatalf("Failed to seed alice : %s", err)
	}

	custodian := NewTokenCustodian(tokens, "vault")
	if err := custodian.Collect(ctx, "alice", 100); err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}

	// The second leg exceeds what the vault holds after the first, so the
	// batch fails and the first leg is clawed back.
	payments := []Payment{
		{To: "bob", Amount: 80},
		{To: "carol", Amount: 30},
	}
	if err := custodian.Disburse(ctx, payments); errors.Cause(err) != ErrInsufficientValue {
		t.Fatalf("Wanted ErrInsufficientValue, got %v", err)
	}

	bob, _ := tokens.BalanceOf(ctx, "bob")
	if bob != 0 {
		t.Fatalf("First leg should be clawed back : bob holds %d", bob)
	}
	held, _ := custodian.Held(ctx)
	if held != 100 {
		t.Fatalf("Vault should be restored : %d", held)
	}
}
