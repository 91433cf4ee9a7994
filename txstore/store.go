// Package txstore is the durable relay-record store: the source of
// truth behind the dedup index and the only component in this repo that
// outlives a process restart. Records persist indefinitely and are never
// expired, only ever cleared explicitly via ClearAll.
package txstore

import (
	"context"

	"github.com/assetbridge-io/relayer/common/types"
)

// Store is the durable mapping from relay-record id to relay record,
// with lookup by either source (eventHash) or relay (relayHash) hash.
// Every method may block on I/O; implementations must be
// safe for concurrent use from multiple ingestors, backfillers, and
// relay tasks without the caller holding any lock across the call.
type Store interface {
	// UpsertByID inserts or updates a record by ID and returns the
	// stored record.
	UpsertByID(ctx context.Context, record *types.RelayRecord) (*types.RelayRecord, error)

	// HashExists reports whether any record has eventHash == h or
	// relayHash == h.
	HashExists(ctx context.Context, hash string) (bool, error)

	// FindByHash returns the first record matching eventHash == h or
	// relayHash == h, or nil if none match.
	FindByHash(ctx context.Context, hash string) (*types.RelayRecord, error)

	// UpdateStatusByHash sets status on the record matching either hash
	// and reports whether any row changed. It must not downgrade a
	// terminal status.
	UpdateStatusByHash(ctx context.Context, hash string, status types.RelayStatus) (bool, error)

	// ListAll returns up to limit most-recent records ordered by
	// createdAt descending. limit<=0 defaults to 1000.
	ListAll(ctx context.Context, limit int) ([]*types.RelayRecord, error)

	// ListPendingByUser returns PENDING records for a (lowercased) user.
	ListPendingByUser(ctx context.Context, user string) ([]*types.RelayRecord, error)

	// ListPendingByChain returns PENDING records destined for chain.
	ListPendingByChain(ctx context.Context, chain types.ChainTag) ([]*types.RelayRecord, error)

	// ClearAll deletes every record. Administrative only.
	ClearAll(ctx context.Context) error

	// AllHashes returns every eventHash and relayHash ever persisted, for
	// DedupIndex.Seed at startup.
	AllHashes(ctx context.Context) ([]string, error)

	Close(ctx context.Context) error
}

const defaultListLimit = 1000
