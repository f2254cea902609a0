package backends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orglens/orgsync/audit"
)

func testRecord(id string) *audit.Record {
	return &audit.Record{
		ID:          id,
		Kind:        audit.KindMigration,
		Subject:     "Project__c",
		SourceLabel: "prod",
		TargetLabel: "sandbox",
		Payload:     []byte(`{"session_id":"` + id + `"}`),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, testRecord("run-1")))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "run-1", got.ID)
	require.Equal(t, audit.KindMigration, got.Kind)
	require.JSONEq(t, `{"session_id":"run-1"}`, string(got.Payload))
}

func TestMemoryStoreCopiesOnPutAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := testRecord("run-1")
	require.NoError(t, store.Put(ctx, original))

	// Mutating the caller's record must not reach the store.
	original.Payload[2] = 'X'
	original.Subject = "Other__c"

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "Project__c", got.Subject)
	require.JSONEq(t, `{"session_id":"run-1"}`, string(got.Payload))

	// Mutating a retrieved record must not reach the store either.
	got.Payload[2] = 'X'
	again, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"session_id":"run-1"}`, string(again.Payload))
}

func TestMemoryStoreListSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, id := range []string{"run-c", "run-a", "run-b"} {
		require.NoError(t, store.Put(ctx, testRecord(id)))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"run-a", "run-b", "run-c"}, ids)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, testRecord("run-1")))
	require.NoError(t, store.Delete(ctx, "run-1"))

	_, err := store.Get(ctx, "run-1")
	require.Error(t, err)

	// Deleting a missing record is not an error.
	require.NoError(t, store.Delete(ctx, "run-1"))
}

func TestMemoryStoreRejectsInvalidRecord(t *testing.T) {
	store := NewMemoryStore()
	err := store.Put(context.Background(), &audit.Record{Kind: audit.KindMigration})
	require.Error(t, err)
}
