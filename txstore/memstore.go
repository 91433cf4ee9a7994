package txstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/pkg/errors"
)

// MemStore is an in-memory Store used by tests and by the backfiller's
// own test suite in place of a running MongoStore. It enforces the same
// sparse-unique-hash and monotonic-status invariants as MongoStore so
// tests written against Store exercise real constraint behavior rather
// than a permissive stub.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*types.RelayRecord
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*types.RelayRecord)}
}

func (s *MemStore) UpsertByID(ctx context.Context, record *types.RelayRecord) (*types.RelayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.NormalizeUser()

	for id, r := range s.records {
		if id == record.ID {
			continue
		}
		if (record.EventHash != "" && r.EventHash == record.EventHash) ||
			(record.RelayHash != "" && r.RelayHash == record.RelayHash) {
			return nil, errors.Errorf("relay record %s shares a hash with record %s", record.ID, id)
		}
	}

	now := time.Now()
	if existing, ok := s.records[record.ID]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	clone := *record
	s.records[record.ID] = &clone
	return &clone, nil
}

func (s *MemStore) matchHash(r *types.RelayRecord, hash string) bool {
	return r.EventHash == hash || r.RelayHash == hash
}

func (s *MemStore) HashExists(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if s.matchHash(r, hash) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) FindByHash(ctx context.Context, hash string) (*types.RelayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if s.matchHash(r, hash) {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemStore) UpdateStatusByHash(ctx context.Context, hash string, status types.RelayStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if !s.matchHash(r, hash) {
			continue
		}
		if r.Status.Terminal() {
			return false, nil
		}
		r.Status = status
		r.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (s *MemStore) ListAll(ctx context.Context, limit int) ([]*types.RelayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = defaultListLimit
	}

	all := make([]*types.RelayRecord, 0, len(s.records))
	for _, r := range s.records {
		clone := *r
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemStore) ListPendingByUser(ctx context.Context, user string) ([]*types.RelayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user = strings.ToLower(user)
	var out []*types.RelayRecord
	for _, r := range s.records {
		if r.User == user && r.Status == types.StatusPending {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemStore) ListPendingByChain(ctx context.Context, chain types.ChainTag) ([]*types.RelayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.RelayRecord
	for _, r := range s.records {
		if r.Chain == chain && r.Status == types.StatusPending {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*types.RelayRecord)
	return nil
}

func (s *MemStore) AllHashes(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hashes []string
	for _, r := range s.records {
		if r.EventHash != "" {
			hashes = append(hashes, r.EventHash)
		}
		if r.RelayHash != "" {
			hashes = append(hashes, r.RelayHash)
		}
	}
	return hashes, nil
}

func (s *MemStore) Close(ctx context.Context) error { return nil }
