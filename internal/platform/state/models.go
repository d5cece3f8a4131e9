package state

// Kind identifies which contract template a record belongs to.
const (
	KindEscrow  = "escrow"
	KindAuction = "auction"
	KindLottery = "lottery"
	KindBounty  = "bounty"
)

// Role identifies a party's relationship to a custody record. Record scoped
// roles are resolved against the record's Parties map, static roles against
// the access policy's global sets.
type Role string

const (
	// RoleInitiator is the party that created the record.
	RoleInitiator Role = "initiator"

	// RoleDepositor is the party whose value is held and who receives a
	// refund. For auctions this is the current highest bidder.
	RoleDepositor Role = "depositor"

	// RoleBeneficiary is the party entitled to a release. For auctions the
	// seller, for lotteries the drawn winner.
	RoleBeneficiary Role = "beneficiary"

	// RoleArbiter may resolve disputes on this record.
	RoleArbiter Role = "arbiter"

	// RoleOperator is a static role for platform operators.
	RoleOperator Role = "operator"
)

// Status is the lifecycle state of a custody record.
type Status uint8

const (
	StatusCreated Status = iota
	StatusActive
	StatusDisputed
	StatusReleased
	StatusRefunded
	StatusSplit
	StatusCancelled
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusCreated:   "created",
	StatusActive:    "active",
	StatusDisputed:  "disputed",
	StatusReleased:  "released",
	StatusRefunded:  "refunded",
	StatusSplit:     "split",
	StatusCancelled: "cancelled",
	StatusCompleted: "completed",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "unknown"
	}
	return name
}

// Terminal returns true when no further transition is legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusReleased, StatusRefunded, StatusSplit, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CustodyRecord is one unit of held value plus its parties, status and
// window. Records are created through the registry and mutated only by
// custody transitions. They are never deleted; terminal records persist for
// audit and query.
type CustodyRecord struct {
	ID     uint64          `json:"ID"`
	Kind   string          `json:"Kind"`
	Status Status          `json:"Status"`
	Parties map[Role]string `json:"Parties"`

	// Expected is the deposit required to activate the record. Zero when
	// funding accrues over time (bids, tickets).
	Expected uint64 `json:"Expected,omitempty"`

	// Amount is the value currently held in custody for this record.
	Amount uint64 `json:"Amount,omitempty"`

	FeePercent uint32 `json:"FeePercent,omitempty"`

	WindowStart Timestamp `json:"WindowStart,omitempty"`
	WindowEnd   Timestamp `json:"WindowEnd,omitempty"`

	// SettleAfterEnd inverts the window guard on disbursal. When true,
	// release is only legal after WindowEnd (auction settlement, lottery
	// draw). When false, a beneficiary release must happen before
	// WindowEnd.
	SettleAfterEnd bool `json:"SettleAfterEnd,omitempty"`

	Description   string `json:"Description,omitempty"`
	DisputeReason string `json:"DisputeReason,omitempty"`

	// Approvals records per participant actions that may happen at most
	// once per record (claims, votes, prize collection).
	Approvals map[string]bool `json:"Approvals,omitempty"`

	// Auction state. Bids is append only history, the last entry is the
	// current highest.
	Bids []Bid `json:"Bids,omitempty"`

	// Lottery state. One Tickets entry per ticket sold.
	TicketPrice uint64   `json:"TicketPrice,omitempty"`
	Tickets     []string `json:"Tickets,omitempty"`
	Winner      string   `json:"Winner,omitempty"`

	CreatedAt Timestamp `json:"CreatedAt,omitempty"`
	UpdatedAt Timestamp `json:"UpdatedAt,omitempty"`
}

// Bid is one auction bid. Displaced bids stay in the history after their
// value has been refunded.
type Bid struct {
	Bidder    string    `json:"Bidder"`
	Amount    uint64    `json:"Amount"`
	Timestamp Timestamp `json:"Timestamp"`
}

// Party returns the address holding the given record scoped role, or an
// empty string if unassigned.
func (r *CustodyRecord) Party(role Role) string {
	if r.Parties == nil {
		return ""
	}
	return r.Parties[role]
}

// SetParty assigns a record scoped role.
func (r *CustodyRecord) SetParty(role Role, address string) {
	if r.Parties == nil {
		r.Parties = make(map[Role]string)
	}
	r.Parties[role] = address
}

// IsParticipant returns true if the address holds any record scoped role or
// has placed a bid or bought a ticket.
func (r *CustodyRecord) IsParticipant(address string) bool {
	if len(address) == 0 {
		return false
	}
	for _, a := range r.Parties {
		if a == address {
			return true
		}
	}
	for _, b := range r.Bids {
		if b.Bidder == address {
			return true
		}
	}
	for _, t := range r.Tickets {
		if t == address {
			return true
		}
	}
	return false
}

// HighBid returns the current highest bid, or nil when no bids have been
// placed.
func (r *CustodyRecord) HighBid() *Bid {
	if len(r.Bids) == 0 {
		return nil
	}
	return &r.Bids[len(r.Bids)-1]
}

// Copy returns a deep copy so guard checks and staged mutations never
// touch the stored view until saved.
func (r *CustodyRecord) Copy() *CustodyRecord {
	result := *r

	if r.Parties != nil {
		result.Parties = make(map[Role]string, len(r.Parties))
		for k, v := range r.Parties {
			result.Parties[k] = v
		}
	}
	if r.Approvals != nil {
		result.Approvals = make(map[string]bool, len(r.Approvals))
		for k, v := range r.Approvals {
			result.Approvals[k] = v
		}
	}
	if r.Bids != nil {
		result.Bids = append([]Bid(nil), r.Bids...)
	}
	if r.Tickets != nil {
		result.Tickets = append([]string(nil), r.Tickets...)
	}

	return &result
}

// Movement is one append only history entry recording value moved for a
// record. The receipt is a content hash assigned by the registry.
type Movement struct {
	RecordID  uint64    `json:"RecordID"`
	Receipt   string    `json:"Receipt"`
	Type      string    `json:"Type"`
	From      string    `json:"From,omitempty"`
	To        string    `json:"To,omitempty"`
	Amount    uint64    `json:"Amount"`
	Timestamp Timestamp `json:"Timestamp"`
}

// Movement types.
const (
	MovementDeposit   = "deposit"
	MovementRelease   = "release"
	MovementRefund    = "refund"
	MovementBidRefund = "bid_refund"
	MovementFee       = "fee"
	MovementPrize     = "prize"
)
