package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSaveTests executes all upsert tests
func (suite *StoreTestSuite) RunSaveTests(t *testing.T) {
	t.Run("AssignsIDs", suite.testSaveAssignsIDs)
	t.Run("KeepsExplicitID", suite.testSaveKeepsExplicitID)
	t.Run("UpsertBySlotKeepsID", suite.testSaveUpsertBySlot)
	t.Run("MoveByID", suite.testSaveMoveByID)
	t.Run("EvictsSlotOccupant", suite.testSaveEvictsSlotOccupant)
	t.Run("InvalidBatchWritesNothing", suite.testSaveInvalidBatch)
	t.Run("DoesNotModifyInput", suite.testSaveDoesNotModifyInput)
	t.Run("PayloadRoundTrip", suite.testSavePayloadRoundTrip)
}

func (suite *StoreTestSuite) testSaveAssignsIDs(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	saved, err := store.SaveAll(context.Background(), []*directory.Record{
		FolderRecord("alice", "/root", "a"),
		FolderRecord("alice", "/root", "b"),
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.NotEmpty(t, saved[0].ID)
	assert.NotEmpty(t, saved[1].ID)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)
}

func (suite *StoreTestSuite) testSaveKeepsExplicitID(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	rec := FolderRecord("alice", "/root", "a")
	rec.ID = "custom-id"
	saved := saveOne(t, store, rec)
	assert.Equal(t, "custom-id", saved.ID)

	found, err := store.FindOne(context.Background(), directory.KindFolder, "alice", "/root/a")
	require.NoError(t, err)
	assert.Equal(t, "custom-id", found.ID)
}

func (suite *StoreTestSuite) testSaveUpsertBySlot(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	first := saveOne(t, store, FileRecord("alice", "/root", "a.txt", []byte("v1")))
	second := saveOne(t, store, FileRecord("alice", "/root", "a.txt", []byte("v2")))
	assert.Equal(t, first.ID, second.ID)

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []byte("v2"), records[0].Payload)
}

func (suite *StoreTestSuite) testSaveMoveByID(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	saved := saveOne(t, store, FolderRecord("alice", "/root", "old"))

	moved := FolderRecord("alice", "/root", "new")
	moved.ID = saved.ID
	saveOne(t, store, moved)

	_, err := store.FindOne(ctx, directory.KindFolder, "alice", "/root/old")
	AssertErrorCode(t, record.ErrNotFound, err)

	found, err := store.FindOne(ctx, directory.KindFolder, "alice", "/root/new")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func (suite *StoreTestSuite) testSaveEvictsSlotOccupant(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	saveOne(t, store, FolderRecord("alice", "/root", "x"))

	replacement := FolderRecord("alice", "/root", "x")
	replacement.ID = "replacement"
	saveOne(t, store, replacement)

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "replacement", records[0].ID)
}

func (suite *StoreTestSuite) testSaveInvalidBatch(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	invalid := FileRecord("alice", "/root", "broken.txt", nil)
	_, err := store.SaveAll(ctx, []*directory.Record{
		FolderRecord("alice", "/root", "fine"),
		invalid,
	})
	AssertErrorCode(t, record.ErrInvalidArgument, err)

	badPath := FolderRecord("alice", "/root", "fine")
	badPath.FullPath = "/root/fi|ne"
	_, err = store.SaveAll(ctx, []*directory.Record{badPath})
	AssertErrorCode(t, record.ErrInvalidArgument, err)

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func (suite *StoreTestSuite) testSaveDoesNotModifyInput(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	rec := FileRecord("alice", "/root", "a.txt", []byte("abc"))
	saved := saveOne(t, store, rec)
	assert.Empty(t, rec.ID)

	// Mutating the returned copy must not reach the store.
	saved.Payload[0] = 'z'
	found, err := store.FindOne(context.Background(), directory.KindFile, "alice", "/root/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), found.Payload)
}

func (suite *StoreTestSuite) testSavePayloadRoundTrip(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	binary := []byte{0x00, 0xff, 0x10, 0x80, 0x7f}
	saveOne(t, store, FileRecord("alice", "/root", "bin", binary))
	saveOne(t, store, FileRecord("alice", "/root", "empty", []byte{}))
	saveOne(t, store, FolderRecord("alice", "/root", "folder"))

	found, err := store.FindOne(ctx, directory.KindFile, "alice", "/root/bin")
	require.NoError(t, err)
	assert.Equal(t, binary, found.Payload)

	empty, err := store.FindOne(ctx, directory.KindFile, "alice", "/root/empty")
	require.NoError(t, err)
	assert.NotNil(t, empty.Payload)
	assert.Empty(t, empty.Payload)

	folder, err := store.FindOne(ctx, directory.KindFolder, "alice", "/root/folder")
	require.NoError(t, err)
	assert.Nil(t, folder.Payload)
}
