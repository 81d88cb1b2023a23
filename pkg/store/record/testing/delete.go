package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDeleteTests executes all delete tests
func (suite *StoreTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("ByID", suite.testDeleteByID)
	t.Run("BySlot", suite.testDeleteBySlot)
	t.Run("MissingIsIgnored", suite.testDeleteMissing)
}

func (suite *StoreTestSuite) testDeleteByID(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	saved, err := store.SaveAll(ctx, []*directory.Record{
		FolderRecord("alice", "/root", "a"),
		FolderRecord("alice", "/root", "b"),
	})
	require.NoError(t, err)

	// The path is stale on purpose: the ID wins.
	stale := saved[0].Clone()
	stale.FullPath = "/root/stale"
	require.NoError(t, store.DeleteAll(ctx, []*directory.Record{stale}))

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"/root/b"}, fullPaths(records))
}

func (suite *StoreTestSuite) testDeleteBySlot(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	saveOne(t, store, FileRecord("alice", "/root", "a.txt", []byte("x")))
	saveOne(t, store, FolderRecord("alice", "/root", "a.txt"))

	require.NoError(t, store.DeleteAll(ctx, []*directory.Record{FileRecord("alice", "/root", "a.txt", []byte{})}))

	_, err := store.FindOne(ctx, directory.KindFile, "alice", "/root/a.txt")
	AssertErrorCode(t, record.ErrNotFound, err)

	_, err = store.FindOne(ctx, directory.KindFolder, "alice", "/root/a.txt")
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testDeleteMissing(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	ghost := FolderRecord("alice", "/root", "ghost")
	require.NoError(t, store.DeleteAll(ctx, []*directory.Record{ghost}))

	ghost.ID = "does-not-exist"
	require.NoError(t, store.DeleteAll(ctx, []*directory.Record{ghost}))
	require.NoError(t, store.DeleteAll(ctx, nil))
}
