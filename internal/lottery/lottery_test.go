package lottery

import (
	"context"
	"testing"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/tests"

	"github.com/pkg/errors"
)

func openLottery(t *testing.T, test *tests.Test, feePercent uint32) *state.CustodyRecord {
	t.Helper()

	start := test.Clock.Now()
	end := state.Timestamp(start.Nano() + 1000000)

	rec, err := Open(context.Background(), test.Registry, "owner", 10, start, end,
		feePercent, "weekly draw", start)
	if err != nil {
		t.Fatalf("Failed to open lottery : %s", err)
	}
	return rec
}

func TestTicketSales(t *testing.T) {
	test := tests.New()
	defer test.TearDown()
	ctx := context.Background()

	rec := openLottery(t, test, 10)

	test.Ledger.SetBalance("alice", 50)
	test.Ledger.SetBalance("bob", 50)

	// The owner cannot enter their own draw.
	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "owner", 10, test.Clock.Now()); errors.Cause(err) != node.ErrInvalidInput {
		t.Fatalf("Wanted ErrInvalidInput, got %v", err)
	}
	// The price is fixed.
	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "alice", 5, test.Clock.Now()); errors.Cause(err) != node.ErrInvalidInput {
		t.Fatalf("Underpaying should fail, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "alice", 10, test.Clock.Now()); err != nil {
			t.Fatalf("Failed to buy ticket : %s", err)
		}
	}
	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "bob", 10, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}

	after, err := test.Registry.Fetch(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Failed to fetch record : %s", err)
	}
	if len(after.Tickets) != 4 {
		t.Fatalf("Wrong ticket count : got %d, wanted 4", len(after.Tickets))
	}
	if after.Amount != 40 {
		t.Fatalf("Wrong pot : got %d, wanted 40", after.Amount)
	}
	if test.Ledger.Balance("alice") != 20 {
		t.Fatalf("Wrong alice balance : got %d, wanted 20", test.Ledger.Balance("alice"))
	}
}

func TestDrawAndClaimPrize(t *testing.T) {
	test := tests.New()
	defer test.TearDown()
	ctx := context.Background()

	rec := openLottery(t, test, 10)

	test.Ledger.SetBalance("alice", 10)
	test.Ledger.SetBalance("bob", 10)

	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "alice", 10, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}
	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "bob", 10, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}

	// Draw before the window closes is illegal.
	if _, err := Draw(ctx, test.Registry, SeededPicker{Seed: 1}, rec.ID, test.Clock.Now()); errors.Cause(err) != node.ErrWindowViolation {
		t.Fatalf("Wanted ErrWindowViolation, got %v", err)
	}

	test.Clock.Set(state.Timestamp(rec.WindowEnd.Nano() + 1))

	drawn, err := Draw(ctx, test.Registry, SeededPicker{Seed: 1}, rec.ID, test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to draw : %s", err)
	}
	if len(drawn.Winner) == 0 {
		t.Fatalf("Draw should assign a winner")
	}
	if drawn.Winner != drawn.Party(state.RoleBeneficiary) {
		t.Fatalf("Winner should hold the beneficiary role")
	}
	// The draw moves no value.
	if drawn.Amount != 20 {
		t.Fatalf("Pot should be untouched : got %d, wanted 20", drawn.Amount)
	}

	// A second draw must fail.
	if _, err := Draw(ctx, test.Registry, SeededPicker{Seed: 2}, rec.ID, test.Clock.Now()); errors.Cause(err) != node.ErrInvalidState {
		t.Fatalf("Second draw should fail with ErrInvalidState, got %v", err)
	}

	// Only the winner collects.
	loser := "alice"
	if drawn.Winner == "alice" {
		loser = "bob"
	}
	if _, err := ClaimPrize(ctx, test.Registry, test.Ledger, rec.ID, loser, test.Clock.Now()); errors.Cause(err) != node.ErrNotAuthorized {
		t.Fatalf("Wanted ErrNotAuthorized, got %v", err)
	}

	claimed, err := ClaimPrize(ctx, test.Registry, test.Ledger, rec.ID, drawn.Winner, test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to claim prize : %s", err)
	}
	if claimed.Status != state.StatusCompleted {
		t.Fatalf("Wrong status : got %s, wanted completed", claimed.Status)
	}

	// 20 at 10% fee : 2 to the owner, 18 to the winner.
	if test.Ledger.Balance("owner") != 2 {
		t.Fatalf("Wrong owner fee : got %d, wanted 2", test.Ledger.Balance("owner"))
	}
	if test.Ledger.Balance(drawn.Winner) != 18 {
		t.Fatalf("Wrong prize : got %d, wanted 18", test.Ledger.Balance(drawn.Winner))
	}

	// The prize can only be collected once.
	if _, err := ClaimPrize(ctx, test.Registry, test.Ledger, rec.ID, drawn.Winner, test.Clock.Now()); errors.Cause(err) != node.ErrInvalidState {
		t.Fatalf("Second claim should fail with ErrInvalidState, got %v", err)
	}
}

func TestFailedPrizeClaimLeavesNoTrace(t *testing.T) {
	test := tests.New()
	defer test.TearDown()
	ctx := context.Background()

	rec := openLottery(t, test, 10)

	test.Ledger.SetBalance("alice", 10)
	test.Ledger.SetBalance("bob", 10)
	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "alice", 10, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}
	if _, err := BuyTicket(ctx, test.Registry, test.Ledger, rec.ID, "bob", 10, test.Clock.Now()); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}

	test.Clock.Set(state.Timestamp(rec.WindowEnd.Nano() + 1))

	drawn, err := Draw(ctx, test.Registry, SeededPicker{Seed: 1}, rec.ID, test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to draw : %s", err)
	}

	// The winner refuses the payout.
	test.Ledger.Reject(drawn.Winner, true)

	if _, err := ClaimPrize(ctx, test.Registry, test.Ledger, rec.ID, drawn.Winner, test.Clock.Now()); errors.Cause(err) != node.ErrTransferFailed {
		t.Fatalf("Wanted ErrTransferFailed, got %v", err)
	}

	after, err := test.Registry.Fetch(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Failed to fetch record : %s", err)
	}
	if after.Status != state.StatusActive || after.Amount != 20 {
		t.Fatalf("Record should be untouched : status %s, amount %d", after.Status, after.Amount)
	}
	// The draw itself stands; only the payout rolled back.
	if after.Winner != drawn.Winner {
		t.Fatalf("Winner should still be recorded : got %q", after.Winner)
	}

	test.Ledger.Reject(drawn.Winner, false)

	claimed, err := ClaimPrize(ctx, test.Registry, test.Ledger, rec.ID, drawn.Winner, test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to claim prize : %s", err)
	}
	if claimed.Status != state.StatusCompleted {
		t.Fatalf("Wrong status : got %s, wanted completed", claimed.Status)
	}
}

func TestDrawWithoutTickets(t *testing.T) {
	test := tests.New()
	defer test.TearDown()
	ctx := context.Background()

	rec := openLottery(t, test, 0)
	test.Clock.Set(state.Timestamp(rec.WindowEnd.Nano() + 1))

	drawn, err := Draw(ctx, test.Registry, HashPicker{}, rec.ID, test.Clock.Now())
	if err != nil {
		t.Fatalf("Failed to draw : %s", err)
	}
	if drawn.Status != state.StatusCancelled {
		t.Fatalf("Lottery without tickets should cancel : got %s", drawn.Status)
	}
}

func TestSeededPickerIsDeterministic(t *testing.T) {
	tickets := []string{"a", "b", "c", "d", "e"}
	now := state.Timestamp(12345)

	picker := SeededPicker{Seed: 42}
	first, err := picker.Pick(1, tickets, now)
	if err != nil {
		t.Fatalf("Failed to pick : %s", err)
	}
	for i := 0; i < 10; i++ {
		again, err := picker.Pick(1, tickets, now)
		if err != nil {
			t.Fatalf("Failed to pick : %s", err)
		}
		if again != first {
			t.Fatalf("Seeded picks differ : %d then %d", first, again)
		}
	}
}

func TestHashPickerStaysInRange(t *testing.T) {
	tickets := []string{"a", "b", "c"}
	picker := HashPicker{}

	for i := uint64(0); i < 100; i++ {
		index, err := picker.Pick(i, tickets, state.Timestamp(1000+i))
		if err != nil {
			t.Fatalf("Failed to pick : %s", err)
		}
		if index < 0 || index >= len(tickets) {
			t.Fatalf("Index out of range : %d", index)
		}
	}
}
