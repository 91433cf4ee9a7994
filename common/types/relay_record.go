package types

import "time"

// RelayStatus is the lifecycle state of a RelayRecord. Transitions are
// monotonic: Pending may become Confirmed or Failed, and both of those
// are absorbing.
type RelayStatus string

const (
	StatusPending   RelayStatus = "PENDING"
	StatusConfirmed RelayStatus = "CONFIRMED"
	StatusFailed    RelayStatus = "FAILED"
)

// Terminal reports whether the status is absorbing.
func (s RelayStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// RelayKind distinguishes the two directions a relay can flow.
type RelayKind string

const (
	KindBuy  RelayKind = "BUY"  // L1 AssetsBuy -> L2 executeBuy
	KindSell RelayKind = "SELL" // L2 ASSETS_SOLD -> L1 withdraw
)

// RelayRecord is the persisted unit tracking one relayed intent. It is
// created the moment the destination-chain transaction is submitted, not
// earlier, so that a signing failure never strands a record with no
// relayHash. See Relayer.abandonBeforeSubmit in package relayer for how
// pre-submit failures are handled.
type RelayRecord struct {
	ID          string      `bson:"_id" json:"id"`
	Chain       ChainTag    `bson:"chain" json:"chain"`
	Kind        RelayKind   `bson:"kind" json:"kind"`
	User        string      `bson:"user" json:"user"`
	Amount      string      `bson:"amount" json:"amount"`
	SourceToken string      `bson:"sourceToken" json:"sourceToken"`
	DestToken   string      `bson:"destToken" json:"destToken"`
	EventHash   string      `bson:"eventHash" json:"eventHash"`
	RelayHash   string      `bson:"relayHash" json:"relayHash"`
	Status      RelayStatus `bson:"status" json:"status"`
	Timestamp   int64       `bson:"timestamp" json:"timestamp"`
	CreatedAt   time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeUser lowercases the user address, matching the invariant that all
// lookups and storage of `user` are case-insensitive.
func (r *RelayRecord) NormalizeUser() {
	r.User = lowerHex(r.User)
}
