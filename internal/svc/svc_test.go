package svc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/lottery"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/tests"

	"github.com/pkg/errors"
)

// captureSink collects delivered events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Deliver(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func newTestService(t *testing.T) (*Service, *tests.Test, *captureSink) {
	t.Helper()

	test := tests.New()
	t.Cleanup(test.TearDown)

	sink := &captureSink{}
	dispatcher := NewDispatcher(node.NewDevelopmentLogger(), sink)

	service := New(test.Registry, test.Ledger, test.Policy, lottery.SeededPicker{Seed: 7},
		dispatcher, "operator")
	service.Clock = test.Clock.Now

	return service, test, sink
}

func TestEscrowLifecycle(t *testing.T) {
	service, test, sink := newTestService(t)
	ctx := context.Background()

	deadline := state.Timestamp(test.Clock.Now().Nano() + 1000000)

	rec, err := service.OpenEscrow(ctx, "buyer", "seller", "judge", 500, deadline, 2, "laptop")
	if err != nil {
		t.Fatalf("Failed to open escrow : %s", err)
	}

	test.Ledger.SetBalance("buyer", 500)
	if _, err := service.FundEscrow(ctx, rec.ID, "buyer", 500); err != nil {
		t.Fatalf("Failed to fund : %s", err)
	}

	released, err := service.ReleaseEscrow(ctx, rec.ID, "buyer")
	if err != nil {
		t.Fatalf("Failed to release : %s", err)
	}
	if released.Status != state.StatusReleased {
		t.Fatalf("Wrong status : got %s, wanted released", released.Status)
	}
	if test.Ledger.Balance("seller") != 500 {
		t.Fatalf("Wrong seller balance : got %d, wanted 500", test.Ledger.Balance("seller"))
	}

	// Events are buffered until the dispatcher flushes.
	if len(sink.events) != 0 {
		t.Fatalf("Events delivered before flush : %d", len(sink.events))
	}
	service.Dispatcher.Flush(ctx)

	if len(sink.events) != 3 {
		t.Fatalf("Wrong event count : got %d, wanted 3", len(sink.events))
	}
	wantTypes := []string{EventCreated, EventFunded, EventSettled}
	for i, want := range wantTypes {
		if sink.events[i].Type != want {
			t.Errorf("Wrong event %d : got %s, wanted %s", i, sink.events[i].Type, want)
		}
		if sink.events[i].RecordID != rec.ID {
			t.Errorf("Wrong record id on event %d : got %d", i, sink.events[i].RecordID)
		}
	}
}

func TestOperatorStaticRole(t *testing.T) {
	service, test, _ := newTestService(t)
	ctx := context.Background()

	deadline := state.Timestamp(test.Clock.Now().Nano() + 1000000)

	rec, err := service.OpenEscrow(ctx, "buyer", "seller", "", 200, deadline, 0, "")
	if err != nil {
		t.Fatalf("Failed to open escrow : %s", err)
	}
	test.Ledger.SetBalance("buyer", 200)
	if _, err := service.FundEscrow(ctx, rec.ID, "buyer", 200); err != nil {
		t.Fatalf("Failed to fund : %s", err)
	}

	// Not an operator yet.
	if _, err := service.ReleaseEscrow(ctx, rec.ID, "ops"); err == nil {
		t.Fatalf("Release by stranger should fail")
	}

	test.Policy.Grant(state.RoleOperator, "ops")
	if _, err := service.ReleaseEscrow(ctx, rec.ID, "ops"); err != nil {
		t.Fatalf("Failed operator release : %s", err)
	}
}

func TestLotteryThroughService(t *testing.T) {
	service, test, _ := newTestService(t)
	ctx := context.Background()

	start := test.Clock.Now()
	end := state.Timestamp(start.Nano() + 1000000)

	rec, err := service.OpenLottery(ctx, "owner", 10, start, end, 10, "draw")
	if err != nil {
		t.Fatalf("Failed to open lottery : %s", err)
	}

	test.Ledger.SetBalance("alice", 10)
	test.Ledger.SetBalance("bob", 10)
	if _, err := service.BuyTicket(ctx, rec.ID, "alice", 10); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}
	if _, err := service.BuyTicket(ctx, rec.ID, "bob", 10); err != nil {
		t.Fatalf("Failed to buy ticket : %s", err)
	}

	test.Clock.Set(state.Timestamp(end.Nano() + 1))

	drawn, err := service.DrawLottery(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Failed to draw : %s", err)
	}
	if _, err := service.ClaimPrize(ctx, rec.ID, drawn.Winner); err != nil {
		t.Fatalf("Failed to claim prize : %s", err)
	}

	sol, err := service.CheckSolvency(ctx)
	if err != nil {
		t.Fatalf("Failed solvency check : %s", err)
	}
	if !sol.Solvent || sol.Outstanding != 0 {
		t.Fatalf("Books should balance : held %d, outstanding %d", sol.Held, sol.Outstanding)
	}
}

func TestKindGuards(t *testing.T) {
	service, test, _ := newTestService(t)
	ctx := context.Background()

	deadline := state.Timestamp(test.Clock.Now().Nano() + 1000000)

	esc, err := service.OpenEscrow(ctx, "buyer", "seller", "", 500, deadline, 0, "laptop")
	if err != nil {
		t.Fatalf("Failed to open escrow : %s", err)
	}
	test.Ledger.SetBalance("buyer", 500)
	if _, err := service.FundEscrow(ctx, esc.ID, "buyer", 500); err != nil {
		t.Fatalf("Failed to fund : %s", err)
	}

	// Another template's operations must not touch an escrow record.
	test.Ledger.SetBalance("mallory", 600)
	if _, err := service.PlaceBid(ctx, esc.ID, "mallory", 600); errors.Cause(err) != node.ErrInvalidState {
		t.Fatalf("Bid on an escrow should fail with ErrInvalidState, got %v", err)
	}
	if _, err := service.BuyTicket(ctx, esc.ID, "mallory", 500); errors.Cause(err) != node.ErrInvalidState {
		t.Fatalf("Ticket on an escrow should fail with ErrInvalidState, got %v", err)
	}
	if _, err := service.ClaimBounty(ctx, esc.ID, "mallory"); errors.Cause(err) != node.ErrInvalidState {
		t.Fatalf("Bounty claim on an escrow should fail with ErrInvalidState, got %v", err)
	}

	after, err := service.Record(ctx, esc.ID)
	if err != nil {
		t.Fatalf("Failed to fetch record : %s", err)
	}
	if after.Kind != state.KindEscrow || after.Amount != 500 ||
		after.Party(state.RoleDepositor) != "buyer" {
		t.Fatalf("Escrow should be untouched : kind %s, amount %d, depositor %s",
			after.Kind, after.Amount, after.Party(state.RoleDepositor))
	}
	if test.Ledger.Balance("mallory") != 600 {
		t.Fatalf("Mallory should not be out of pocket : balance %d", test.Ledger.Balance("mallory"))
	}

	// Escrow operations must not touch an auction record either.
	start := test.Clock.Now()
	end := state.Timestamp(start.Nano() + 1000)

	auc, err := service.OpenAuction(ctx, "vendor", start, end, "rare item")
	if err != nil {
		t.Fatalf("Failed to open auction : %s", err)
	}
	test.Ledger.SetBalance("alice", 100)
	if _, err := service.PlaceBid(ctx, auc.ID, "alice", 100); err != nil {
		t.Fatalf("Failed to place bid : %s", err)
	}

	test.Clock.Set(state.Timestamp(end.Nano() + 1))

	// The high bidder cannot pull their bid back out through the escrow
	// refund path once the window has closed.
	if _, err := service.RefundEscrow(ctx, auc.ID, "alice"); errors.Cause(err) != node.ErrInvalidState {
		t.Fatalf("Escrow refund on an auction should fail with ErrInvalidState, got %v", err)
	}
	if test.Ledger.Balance("alice") != 0 {
		t.Fatalf("Alice's bid should stay escrowed : balance %d", test.Ledger.Balance("alice"))
	}

	settled, err := service.SettleAuction(ctx, auc.ID)
	if err != nil {
		t.Fatalf("Failed to settle : %s", err)
	}
	if settled.Winner != "alice" || test.Ledger.Balance("vendor") != 100 {
		t.Fatalf("Wrong settlement : winner %s, vendor balance %d",
			settled.Winner, test.Ledger.Balance("vendor"))
	}
}

func TestQueryAPI(t *testing.T) {
	service, test, _ := newTestService(t)
	ctx := context.Background()

	deadline := state.Timestamp(test.Clock.Now().Nano() + 1000000)
	rec, err := service.OpenEscrow(ctx, "buyer", "seller", "", 300, deadline, 0, "books")
	if err != nil {
		t.Fatalf("Failed to open escrow : %s", err)
	}
	test.Ledger.SetBalance("buyer", 300)
	if _, err := service.FundEscrow(ctx, rec.ID, "buyer", 300); err != nil {
		t.Fatalf("Failed to fund : %s", err)
	}

	server := httptest.NewServer(service.Router(node.NewDevelopmentLogger()))
	defer server.Close()

	// Record by id.
	res, err := http.Get(server.URL + "/records/1")
	if err != nil {
		t.Fatalf("Failed request : %s", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Wrong status : got %d, wanted 200", res.StatusCode)
	}
	var fetched state.CustodyRecord
	if err := json.NewDecoder(res.Body).Decode(&fetched); err != nil {
		t.Fatalf("Failed to decode record : %s", err)
	}
	if fetched.ID != rec.ID || fetched.Status != state.StatusActive {
		t.Fatalf("Wrong record : id %d, status %s", fetched.ID, fetched.Status)
	}

	// Unknown record.
	res404, err := http.Get(server.URL + "/records/999")
	if err != nil {
		t.Fatalf("Failed request : %s", err)
	}
	res404.Body.Close()
	if res404.StatusCode != http.StatusNotFound {
		t.Fatalf("Wrong status : got %d, wanted 404", res404.StatusCode)
	}

	// Bad id.
	resBad, err := http.Get(server.URL + "/records/abc")
	if err != nil {
		t.Fatalf("Failed request : %s", err)
	}
	resBad.Body.Close()
	if resBad.StatusCode != http.StatusBadRequest {
		t.Fatalf("Wrong status : got %d, wanted 400", resBad.StatusCode)
	}

	// Participant index.
	resPart, err := http.Get(server.URL + "/participants/buyer")
	if err != nil {
		t.Fatalf("Failed request : %s", err)
	}
	defer resPart.Body.Close()
	var part struct {
		Address   string   `json:"Address"`
		RecordIDs []uint64 `json:"RecordIDs"`
	}
	if err := json.NewDecoder(resPart.Body).Decode(&part); err != nil {
		t.Fatalf("Failed to decode participant response : %s", err)
	}
	if len(part.RecordIDs) != 1 || part.RecordIDs[0] != rec.ID {
		t.Fatalf("Wrong participant ids : %v", part.RecordIDs)
	}

	// Movements.
	resMov, err := http.Get(server.URL + "/records/1/movements")
	if err != nil {
		t.Fatalf("Failed request : %s", err)
	}
	defer resMov.Body.Close()
	var movements []state.Movement
	if err := json.NewDecoder(resMov.Body).Decode(&movements); err != nil {
		t.Fatalf("Failed to decode movements : %s", err)
	}
	if len(movements) != 1 || movements[0].Type != state.MovementDeposit {
		t.Fatalf("Wrong movements : %v", movements)
	}

	// Solvency.
	resSol, err := http.Get(server.URL + "/solvency")
	if err != nil {
		t.Fatalf("Failed request : %s", err)
	}
	defer resSol.Body.Close()
	var sol Solvency
	if err := json.NewDecoder(resSol.Body).Decode(&sol); err != nil {
		t.Fatalf("Failed to decode solvency : %s", err)
	}
	if !sol.Solvent || sol.Held != 300 || sol.Outstanding != 300 {
		t.Fatalf("Wrong solvency : %+v", sol)
	}
}
