package svc

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/access"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/auction"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/bounty"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/custody"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/escrow"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/lottery"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"
)

// Clock returns the time snapshot for one operation. Every window
// comparison inside that operation uses the one value it returns.
type Clock func() state.Timestamp

// Service is the front door to the custody templates. It serializes
// operations per record, stamps each operation with a single time snapshot
// and emits events after successful transitions. The domain packages
// underneath stay free of locking so they can be composed and tested
// directly.
type Service struct {
	Registry   *registry.Registry
	Transfer   ledger.ValueTransfer
	Policy     *access.Policy
	Picker     lottery.WinnerPicker
	Dispatcher *Dispatcher
	FeeAddress string
	Clock      Clock

	locks mapLock
}

func New(reg *registry.Registry, vt ledger.ValueTransfer, policy *access.Policy,
	picker lottery.WinnerPicker, dispatcher *Dispatcher, feeAddress string) *Service {

	return &Service{
		Registry:   reg,
		Transfer:   vt,
		Policy:     policy,
		Picker:     picker,
		Dispatcher: dispatcher,
		FeeAddress: feeAddress,
		Clock:      state.CurrentTimestamp,
		locks:      newMapLock(),
	}
}

// begin stamps one operation: it takes the single time snapshot and tags
// the context with a trace id for the logs.
func (s *Service) begin(ctx context.Context) (context.Context, state.Timestamp) {
	now := s.Clock()
	return node.ContextWithValues(ctx, now), now
}

// lock serializes all mutations of one record. Create operations allocate
// their id inside the registry and need no lock.
func (s *Service) lock(id uint64) func() {
	mu := s.locks.get(id)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) emit(eventType, actor string, amount uint64, rec *state.CustodyRecord, now state.Timestamp) {
	if s.Dispatcher == nil {
		return
	}
	s.Dispatcher.Emit(Event{
		Type:      eventType,
		RecordID:  rec.ID,
		Kind:      rec.Kind,
		Status:    rec.Status.String(),
		Actor:     actor,
		Amount:    amount,
		Timestamp: now,
	})
}

// Escrow operations.

func (s *Service) OpenEscrow(ctx context.Context, buyer, seller, arbiter string,
	amount uint64, deadline state.Timestamp, feePercent uint32, description string) (*state.CustodyRecord, error) {

	ctx, now := s.begin(ctx)
	rec, err := escrow.Open(ctx, s.Registry, buyer, seller, arbiter, amount, deadline, feePercent, description, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventCreated, buyer, amount, rec, now)
	return rec, nil
}

func (s *Service) FundEscrow(ctx context.Context, id uint64, buyer string, amount uint64) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := escrow.Fund(ctx, s.Registry, s.Transfer, id, buyer, amount, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventFunded, buyer, amount, rec, now)
	return rec, nil
}

func (s *Service) ReleaseEscrow(ctx context.Context, id uint64, caller string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := escrow.Release(ctx, s.Registry, s.Transfer, s.Policy, id, caller, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, caller, rec.Amount, rec, now)
	return rec, nil
}

func (s *Service) RefundEscrow(ctx context.Context, id uint64, caller string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := escrow.Refund(ctx, s.Registry, s.Transfer, s.Policy, id, caller, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, caller, rec.Amount, rec, now)
	return rec, nil
}

func (s *Service) Dispute(ctx context.Context, id uint64, caller, reason string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := custody.Dispute(ctx, s.Registry, id, caller, reason, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventDisputed, caller, 0, rec, now)
	return rec, nil
}

func (s *Service) ResolveDispute(ctx context.Context, id uint64, caller string,
	res custody.Resolution, depositorPercent uint32) (*state.CustodyRecord, error) {

	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := custody.ResolveDispute(ctx, s.Registry, s.Transfer, s.Policy, id, caller,
		res, depositorPercent, s.FeeAddress, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, caller, 0, rec, now)
	return rec, nil
}

func (s *Service) Cancel(ctx context.Context, id uint64, caller string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := custody.Cancel(ctx, s.Registry, id, caller, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, caller, 0, rec, now)
	return rec, nil
}

// Auction operations.

func (s *Service) OpenAuction(ctx context.Context, seller string, start, end state.Timestamp,
	description string) (*state.CustodyRecord, error) {

	ctx, now := s.begin(ctx)
	rec, err := auction.Open(ctx, s.Registry, seller, start, end, description, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventCreated, seller, 0, rec, now)
	return rec, nil
}

func (s *Service) PlaceBid(ctx context.Context, id uint64, bidder string, amount uint64) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := auction.PlaceBid(ctx, s.Registry, s.Transfer, id, bidder, amount, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventBidPlaced, bidder, amount, rec, now)
	return rec, nil
}

func (s *Service) SettleAuction(ctx context.Context, id uint64) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := auction.Settle(ctx, s.Registry, s.Transfer, id, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, rec.Winner, 0, rec, now)
	return rec, nil
}

// Lottery operations.

func (s *Service) OpenLottery(ctx context.Context, owner string, ticketPrice uint64,
	start, end state.Timestamp, feePercent uint32, description string) (*state.CustodyRecord, error) {

	ctx, now := s.begin(ctx)
	rec, err := lottery.Open(ctx, s.Registry, owner, ticketPrice, start, end, feePercent, description, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventCreated, owner, 0, rec, now)
	return rec, nil
}

func (s *Service) BuyTicket(ctx context.Context, id uint64, buyer string, paid uint64) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := lottery.BuyTicket(ctx, s.Registry, s.Transfer, id, buyer, paid, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventTicket, buyer, paid, rec, now)
	return rec, nil
}

func (s *Service) DrawLottery(ctx context.Context, id uint64) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := lottery.Draw(ctx, s.Registry, s.Picker, id, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventDrawn, rec.Winner, 0, rec, now)
	return rec, nil
}

func (s *Service) ClaimPrize(ctx context.Context, id uint64, caller string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := lottery.ClaimPrize(ctx, s.Registry, s.Transfer, id, caller, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, caller, 0, rec, now)
	return rec, nil
}

// Bounty operations.

func (s *Service) PostBounty(ctx context.Context, poster string, reward uint64,
	deadline state.Timestamp, description string) (*state.CustodyRecord, error) {

	ctx, now := s.begin(ctx)
	rec, err := bounty.Post(ctx, s.Registry, poster, reward, deadline, description, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventCreated, poster, reward, rec, now)
	return rec, nil
}

func (s *Service) FundBounty(ctx context.Context, id uint64, poster string, amount uint64) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := bounty.Fund(ctx, s.Registry, s.Transfer, id, poster, amount, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventFunded, poster, amount, rec, now)
	return rec, nil
}

func (s *Service) ClaimBounty(ctx context.Context, id uint64, hunter string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := bounty.Claim(ctx, s.Registry, id, hunter, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventClaimed, hunter, 0, rec, now)
	return rec, nil
}

func (s *Service) ApproveBounty(ctx context.Context, id uint64, caller, hunter string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := bounty.Approve(ctx, s.Registry, s.Transfer, id, caller, hunter, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, hunter, 0, rec, now)
	return rec, nil
}

func (s *Service) WithdrawBounty(ctx context.Context, id uint64, caller string) (*state.CustodyRecord, error) {
	defer s.lock(id)()
	ctx, now := s.begin(ctx)
	rec, err := bounty.Withdraw(ctx, s.Registry, s.Transfer, s.Policy, id, caller, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventSettled, caller, 0, rec, now)
	return rec, nil
}

// Queries. Reads take no lock; records are saved whole so a read sees a
// consistent snapshot.

func (s *Service) Record(ctx context.Context, id uint64) (*state.CustodyRecord, error) {
	return s.Registry.Fetch(ctx, id)
}

func (s *Service) Records(ctx context.Context) ([]*state.CustodyRecord, error) {
	return s.Registry.List(ctx)
}

func (s *Service) ByParticipant(ctx context.Context, address string) ([]uint64, error) {
	return s.Registry.ByParticipant(ctx, address)
}

func (s *Service) Movements(ctx context.Context, id uint64) ([]state.Movement, error) {
	return s.Registry.Movements(ctx, id)
}

// Solvency reports the pool balance against the outstanding total.
type Solvency struct {
	Held        uint64 `json:"Held"`
	Outstanding uint64 `json:"Outstanding"`
	Solvent     bool   `json:"Solvent"`
}

func (s *Service) CheckSolvency(ctx context.Context) (*Solvency, error) {
	held, err := s.Transfer.Held(ctx)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.Registry.OutstandingTotal(ctx)
	if err != nil {
		return nil, err
	}
	return &Solvency{
		Held:        held,
		Outstanding: outstanding,
		Solvent:     held >= outstanding,
	}, nil
}
