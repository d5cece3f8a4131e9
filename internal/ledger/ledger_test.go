package ledger

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestCollectAndSend(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	l.SetBalance("alice", 100)

	if err := l.Collect(ctx, "alice", 60); err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	if l.Balance("alice") != 40 {
		t.Fatalf("Wrong balance : got %d, wanted 40", l.Balance("alice"))
	}
	held, _ := l.Held(ctx)
	if held != 60 {
		t.Fatalf("Wrong held : got %d, wanted 60", held)
	}

	// Collect over balance fails and changes nothing.
	if err := l.Collect(ctx, "alice", 50); errors.Cause(err) != ErrInsufficientValue {
		t.Fatalf("Wanted ErrInsufficientValue, got %v", err)
	}
	if l.Balance("alice") != 40 {
		t.Fatalf("Balance changed on failed collect : %d", l.Balance("alice"))
	}

	if err := l.Send(ctx, "bob", 60); err != nil {
		t.Fatalf("Failed to send : %s", err)
	}
	if l.Balance("bob") != 60 {
		t.Fatalf("Wrong bob balance : got %d, wanted 60", l.Balance("bob"))
	}

	// Send over the pool fails.
	if err := l.Send(ctx, "bob", 1); errors.Cause(err) != ErrInsufficientValue {
		t.Fatalf("Wanted ErrInsufficientValue, got %v", err)
	}
}

func TestRejectedSend(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	l.SetBalance("alice", 100)
	if err := l.Collect(ctx, "alice", 100); err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}

	l.Reject("bob", true)
	if err := l.Send(ctx, "bob", 100); errors.Cause(err) != ErrRejected {
		t.Fatalf("Wanted ErrRejected, got %v", err)
	}
	held, _ := l.Held(ctx)
	if held != 100 {
		t.Fatalf("Held changed on rejected send : %d", held)
	}

	l.Reject("bob", false)
	if err := l.Send(ctx, "bob", 100); err != nil {
		t.Fatalf("Failed to send after reject cleared : %s", err)
	}
}

func TestDisburseAllOrNothing(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	l.SetBalance("alice", 100)
	if err := l.Collect(ctx, "alice", 100); err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}

	// One rejecting leg fails the whole batch with no partial payout.
	l.Reject("carol", true)
	payments := []Payment{
		{To: "bob", Amount: 60},
		{To: "carol", Amount: 40},
	}
	if err := l.Disburse(ctx, payments); errors.Cause(err) != ErrRejected {
		t.Fatalf("Wanted ErrRejected, got %v", err)
	}
	if l.Balance("bob") != 0 {
		t.Fatalf("Partial payout observed : bob holds %d", l.Balance("bob"))
	}
	held, _ := l.Held(ctx)
	if held != 100 {
		t.Fatalf("Held changed on failed disbursal : %d", held)
	}

	// Underfunded batches fail whole.
	l.Reject("carol", false)
	over := []Payment{{To: "bob", Amount: 60}, {To: "carol", Amount: 50}}
	if err := l.Disburse(ctx, over); errors.Cause(err) != ErrInsufficientValue {
		t.Fatalf("Wanted ErrInsufficientValue, got %v", err)
	}

	if err := l.Disburse(ctx, payments); err != nil {
		t.Fatalf("Failed to disburse : %s", err)
	}
	if l.Balance("bob") != 60 || l.Balance("carol") != 40 {
		t.Fatalf("Wrong balances : bob %d, carol %d", l.Balance("bob"), l.Balance("carol"))
	}
	held, _ = l.Held(ctx)
	if held != 0 {
		t.Fatalf("Pool should be empty : %d", held)
	}
}
