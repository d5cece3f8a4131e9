package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// TokenLedger is the external token contract interface for token
// denominated custody. No call is assumed to succeed; every result gates
// subsequent state commitment.
type TokenLedger interface {
	Transfer(ctx context.Context, to string, amount uint64) error
	TransferFrom(ctx context.Context, from, to string, amount uint64) error
	BalanceOf(ctx context.Context, address string) (uint64, error)
}

// TokenCustodian adapts a TokenLedger to the ValueTransfer interface by
// holding custody value on a dedicated account.
type TokenCustodian struct {
	tokens  TokenLedger
	account string
}

// NewTokenCustodian returns a ValueTransfer over the given token ledger.
// The account must be authorized to transfer from depositors.
func NewTokenCustodian(tokens TokenLedger, account string) *TokenCustodian {
	return &TokenCustodian{
		tokens:  tokens,
		account: account,
	}
}

func (c *TokenCustodian) Collect(ctx context.Context, from string, amount uint64) error {
	return c.tokens.TransferFrom(ctx, from, c.account, amount)
}

func (c *TokenCustodian) Send(ctx context.Context, to string, amount uint64) error {
	return c.tokens.TransferFrom(ctx, c.account, to, amount)
}

// Disburse pays each leg in order. On a mid-batch failure the completed
// legs are clawed back before returning, restoring the custody account.
// The claw back requires the custodian keep transfer authority over
// receiving accounts, which the in-process token ledger grants.
func (c *TokenCustodian) Disburse(ctx context.Context, payments []Payment) error {
	done := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if err := c.Send(ctx, p.To, p.Amount); err != nil {
			for _, d := range done {
				if rerr := c.tokens.TransferFrom(ctx, d.To, c.account, d.Amount); rerr != nil {
					return errors.Wrapf(err, "claw back of %d from %s also failed : %s", d.Amount, d.To, rerr)
				}
			}
			return err
		}
		done = append(done, p)
	}
	return nil
}

func (c *TokenCustodian) Held(ctx context.Context) (uint64, error) {
	return c.tokens.BalanceOf(ctx, c.account)
}

// MemoryTokenLedger is an in-process TokenLedger for tests and standalone
// token denominated records.
type MemoryTokenLedger struct {
	mu       sync.Mutex
	owner    string
	balances map[string]uint64
}

// NewMemoryTokenLedger returns a token ledger with the full supply minted
// to the owner.
func NewMemoryTokenLedger(owner string, supply uint64) *MemoryTokenLedger {
	return &MemoryTokenLedger{
		owner:    owner,
		balances: map[string]uint64{owner: supply},
	}
}

func (t *MemoryTokenLedger) Transfer(ctx context.Context, to string, amount uint64) error {
	return t.TransferFrom(ctx, t.owner, to, amount)
}

func (t *MemoryTokenLedger) TransferFrom(ctx context.Context, from, to string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balances[from] < amount {
		return errors.Wrapf(ErrInsufficientValue, "%s holds %d, needs %d", from, t.balances[from], amount)
	}

	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

func (t *MemoryTokenLedger) BalanceOf(ctx context.Context, address string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[address], nil
}
