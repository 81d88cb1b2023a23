package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFindTests executes all lookup tests
func (suite *StoreTestSuite) RunFindTests(t *testing.T) {
	t.Run("UnknownOwnerIsEmpty", suite.testFindUnknownOwner)
	t.Run("OwnersAreIsolated", suite.testFindOwnersAreIsolated)
	t.Run("Ordering", suite.testFindOrdering)
	t.Run("FindOne", suite.testFindOne)
	t.Run("FindOneNotFound", suite.testFindOneNotFound)
	t.Run("KindIsPartOfIdentity", suite.testFindKindIsPartOfIdentity)
}

func (suite *StoreTestSuite) testFindUnknownOwner(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	records, err := store.FindAllByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func (suite *StoreTestSuite) testFindOwnersAreIsolated(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	_, err := store.SaveAll(ctx, []*directory.Record{
		FolderRecord("alice", "/root", "docs"),
		FolderRecord("bob", "/root", "docs"),
		FolderRecord("bob", "/root", "music"),
	})
	require.NoError(t, err)

	alice, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, "alice", alice[0].Owner)

	bob, err := store.FindAllByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"/root/docs", "/root/music"}, fullPaths(bob))
}

func (suite *StoreTestSuite) testFindOrdering(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	_, err := store.SaveAll(ctx, []*directory.Record{
		FolderRecord("alice", "/root/b", "c"),
		FolderRecord("alice", "/root", "b"),
		FolderRecord("alice", "/root", "a"),
	})
	require.NoError(t, err)

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"/root/a", "/root/b", "/root/b/c"}, fullPaths(records))
}

func (suite *StoreTestSuite) testFindOne(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	saved := saveOne(t, store, FileRecord("alice", "/root", "a.txt", []byte("content")))

	found, err := store.FindOne(context.Background(), directory.KindFile, "alice", "/root/a.txt")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)
	assert.Equal(t, []byte("content"), found.Payload)
	assert.Equal(t, "/root", found.ParentPath)
	assert.Equal(t, "a.txt", found.Discriminator)
}

func (suite *StoreTestSuite) testFindOneNotFound(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	saveOne(t, store, FolderRecord("alice", "/root", "docs"))

	_, err := store.FindOne(context.Background(), directory.KindFolder, "alice", "/root/other")
	AssertErrorCode(t, record.ErrNotFound, err)
	assert.True(t, record.IsNotFound(err))

	_, err = store.FindOne(context.Background(), directory.KindFolder, "bob", "/root/docs")
	AssertErrorCode(t, record.ErrNotFound, err)
}

func (suite *StoreTestSuite) testFindKindIsPartOfIdentity(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	folder := saveOne(t, store, FolderRecord("alice", "/root", "same"))
	file := saveOne(t, store, FileRecord("alice", "/root", "same", []byte("x")))
	assert.NotEqual(t, folder.ID, file.ID)

	_, err := store.FindOne(ctx, directory.KindFolder, "alice", "/root/same")
	require.NoError(t, err)
	_, err = store.FindOne(ctx, directory.KindFile, "alice", "/root/same")
	require.NoError(t, err)

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
