package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrInsufficientValue occurs when the paying account does not hold the
	// amount being moved.
	ErrInsufficientValue = errors.New("Insufficient value")

	// ErrRejected occurs when the receiving account refuses the payment.
	ErrRejected = errors.New("Transfer rejected")
)

// Payment is one leg of a disbursal.
type Payment struct {
	To     string
	Amount uint64
}

// ValueTransfer moves native value between external accounts and the
// custody pool. Every call can fail for reasons outside the caller's
// control; a transition must treat any failure as aborting the whole
// operation.
type ValueTransfer interface {
	// Collect moves value from an external account into custody. Models
	// value attached to a deposit or bid.
	Collect(ctx context.Context, from string, amount uint64) error

	// Send moves value out of custody to an external account.
	Send(ctx context.Context, to string, amount uint64) error

	// Disburse performs a multi-leg payout. Either every payment lands or
	// none do.
	Disburse(ctx context.Context, payments []Payment) error

	// Held returns the total value currently in custody. Used for the
	// solvency check before every disbursing transition.
	Held(ctx context.Context) (uint64, error)
}

// MemoryLedger is the in-process ValueTransfer used by the daemon in
// standalone mode and by tests. Rejections can be injected per address to
// exercise transfer failure paths.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
	held     uint64
	rejects  map[string]bool
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]uint64),
		rejects:  make(map[string]bool),
	}
}

// SetBalance sets an account's balance directly. Test and bootstrap helper.
func (l *MemoryLedger) SetBalance(address string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] = amount
}

// Balance returns an account's balance.
func (l *MemoryLedger) Balance(address string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address]
}

// Reject marks an address as refusing payments. Used to inject transfer
// failures.
func (l *MemoryLedger) Reject(address string, reject bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejects[address] = reject
}

// Collect moves value from an account into custody.
func (l *MemoryLedger) Collect(ctx context.Context, from string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return errors.Wrapf(ErrInsufficientValue, "%s holds %d, needs %d", from, l.balances[from], amount)
	}

	l.balances[from] -= amount
	l.held += amount
	return nil
}

// Send moves value out of custody. Custody is debited before the receiving
// account is credited so a failure never leaves value counted twice.
func (l *MemoryLedger) Send(ctx context.Context, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.send(to, amount)
}

func (l *MemoryLedger) send(to string, amount uint64) error {
	if l.held < amount {
		return errors.Wrapf(ErrInsufficientValue, "custody holds %d, needs %d", l.held, amount)
	}
	if l.rejects[to] {
		return errors.Wrapf(ErrRejected, "receiver %s", to)
	}

	l.held -= amount
	l.balances[to] += amount
	return nil
}

// Disburse pays all legs or none. The whole batch happens under one lock so
// no partial payout is ever observable.
func (l *MemoryLedger) Disburse(ctx context.Context, payments []Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total uint64
	for _, p := range payments {
		if l.rejects[p.To] {
			return errors.Wrapf(ErrRejected, "receiver %s", p.To)
		}
		total += p.Amount
	}
	if l.held < total {
		return errors.Wrapf(ErrInsufficientValue, "custody holds %d, needs %d", l.held, total)
	}

	for _, p := range payments {
		if err := l.send(p.To, p.Amount); err != nil {
			// Guards above make this unreachable, but never leave a
			// half-applied batch.
			panic(err)
		}
	}
	return nil
}

// Held returns the custody pool balance.
func (l *MemoryLedger) Held(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held, nil
}
