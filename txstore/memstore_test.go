package txstore

import (
	"context"
	"testing"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*MemStore)(nil)

func newRecord(id, eventHash string, status types.RelayStatus) *types.RelayRecord {
	return &types.RelayRecord{
		ID:        id,
		Chain:     types.L1,
		Kind:      types.KindSell,
		User:      "0xABC",
		EventHash: eventHash,
		Status:    status,
	}
}

func TestUpsertByID_NormalizesUserAndPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	stored, err := store.UpsertByID(ctx, newRecord("r1", "0xhash1", types.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", stored.User)

	firstCreated := stored.CreatedAt

	stored2, err := store.UpsertByID(ctx, newRecord("r1", "0xhash1", types.StatusConfirmed))
	require.NoError(t, err)
	assert.Equal(t, firstCreated, stored2.CreatedAt, "created timestamp must not change on update")
	assert.Equal(t, types.StatusConfirmed, stored2.Status)
}

func TestHashExists_MatchesEitherEventOrRelayHash(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	record := newRecord("r1", "0xevent", types.StatusPending)
	record.RelayHash = "0xrelay"
	_, err := store.UpsertByID(ctx, record)
	require.NoError(t, err)

	exists, err := store.HashExists(ctx, "0xevent")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.HashExists(ctx, "0xrelay")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.HashExists(ctx, "0xother")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateStatusByHash_NeverDowngradesTerminalStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.UpsertByID(ctx, newRecord("r1", "0xhash1", types.StatusConfirmed))
	require.NoError(t, err)

	changed, err := store.UpdateStatusByHash(ctx, "0xhash1", types.StatusFailed)
	require.NoError(t, err)
	assert.False(t, changed, "a terminal status must not be overwritten")

	record, err := store.FindByHash(ctx, "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, record.Status)
}

func TestUpdateStatusByHash_PendingToConfirmedSucceeds(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.UpsertByID(ctx, newRecord("r1", "0xhash1", types.StatusPending))
	require.NoError(t, err)

	changed, err := store.UpdateStatusByHash(ctx, "0xhash1", types.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, changed)

	record, err := store.FindByHash(ctx, "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, record.Status)
}

func TestListPendingByUser_FiltersStatusAndUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	pending := newRecord("r1", "0xhash1", types.StatusPending)
	pending.User = "0xUser"
	confirmed := newRecord("r2", "0xhash2", types.StatusConfirmed)
	confirmed.User = "0xUser"
	otherUser := newRecord("r3", "0xhash3", types.StatusPending)
	otherUser.User = "0xOther"

	for _, r := range []*types.RelayRecord{pending, confirmed, otherUser} {
		_, err := store.UpsertByID(ctx, r)
		require.NoError(t, err)
	}

	results, err := store.ListPendingByUser(ctx, "0xUSER")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r1", results[0].ID)
}

func TestAllHashes_ReturnsBothEventAndRelayHashes(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	record := newRecord("r1", "0xevent", types.StatusPending)
	record.RelayHash = "0xrelay"
	_, err := store.UpsertByID(ctx, record)
	require.NoError(t, err)

	hashes, err := store.AllHashes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0xevent", "0xrelay"}, hashes)
}

func TestClearAll_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.UpsertByID(ctx, newRecord("r1", "0xhash1", types.StatusPending))
	require.NoError(t, err)

	require.NoError(t, store.ClearAll(ctx))

	all, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
