package lottery

import (
	"encoding/binary"
	"math/rand"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// WinnerPicker selects the winning ticket index at draw time. The draw
// operation is deterministic given the picker, so deployments choose how
// much randomness they want and tests inject a fixed outcome.
type WinnerPicker interface {
	Pick(recordID uint64, tickets []string, now state.Timestamp) (int, error)
}

// HashPicker derives the winning index from a hash over the record id, the
// draw time and the full ticket list.
//
// This is not a strong randomness source. Anyone who can influence the
// draw time can bias the outcome, the same way miner controlled block data
// biases on chain draws. Deployments that need a fair draw should supply a
// picker backed by a commit reveal scheme or an external beacon.
type HashPicker struct{}

func (HashPicker) Pick(recordID uint64, tickets []string, now state.Timestamp) (int, error) {
	if len(tickets) == 0 {
		return 0, errors.New("no tickets")
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to create hash")
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], recordID)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], now.Nano())
	h.Write(buf[:])
	for _, t := range tickets {
		h.Write([]byte(t))
	}

	digest := h.Sum(nil)
	value := binary.BigEndian.Uint64(digest[:8])
	return int(value % uint64(len(tickets))), nil
}

// SeededPicker draws from a fixed seed. Test deployments use it to make
// the winner predictable.
type SeededPicker struct {
	Seed int64
}

func (p SeededPicker) Pick(recordID uint64, tickets []string, now state.Timestamp) (int, error) {
	if len(tickets) == 0 {
		return 0, errors.New("no tickets")
	}
	rng := rand.New(rand.NewSource(p.Seed))
	return rng.Intn(len(tickets)), nil
}
