package tests

import (
	"context"
	"os"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/access"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/db"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"github.com/pkg/errors"
)

// Test bundles the pieces most tests need: a registry over throwaway
// filesystem storage, an in memory ledger and a clock that only moves when
// the test says so.
type Test struct {
	Context  context.Context
	DB       *db.DB
	Registry *registry.Registry
	Ledger   *ledger.MemoryLedger
	Policy   *access.Policy
	Clock    *Clock

	root string
}

// Clock is a fixed test clock. Operations read it once; tests advance it
// between operations to cross windows.
type Clock struct {
	now state.Timestamp
}

// Now returns the current test time.
func (c *Clock) Now() state.Timestamp {
	return c.now
}

// Set moves the clock to a specific time.
func (c *Clock) Set(t state.Timestamp) {
	c.now = t
}

// Advance moves the clock forward by nanoseconds.
func (c *Clock) Advance(nanos uint64) {
	c.now = state.Timestamp(c.now.Nano() + nanos)
}

func (test *Test) Setup(ctx context.Context) error {
	log := node.NewDevelopmentLogger()
	test.Context = node.ContextWithLogger(ctx, log)

	root, err := os.MkdirTemp("", "custody-test-")
	if err != nil {
		return errors.Wrap(err, "Failed to create temp storage")
	}
	test.root = root

	test.DB, err = db.New(&db.StorageConfig{
		Bucket: "standalone",
		Root:   root,
	})
	if err != nil {
		return errors.Wrap(err, "Failed to create DB")
	}

	test.Registry = registry.New(test.DB)
	test.Ledger = ledger.NewMemoryLedger()
	test.Policy = access.NewPolicy()
	test.Clock = &Clock{now: state.Timestamp(1000)}

	return nil
}

func (test *Test) TearDown() {
	if test.DB != nil {
		test.DB.Close()
	}
	if len(test.root) > 0 {
		os.RemoveAll(test.root)
	}
}

// New creates a ready test fixture or fails hard. Callers defer TearDown.
func New() *Test {
	test := &Test{}
	if err := test.Setup(context.Background()); err != nil {
		panic(err)
	}
	return test
}
