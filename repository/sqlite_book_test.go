package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
)

func TestBookRepo(t *testing.T) {
	db := newTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	books := NewSQLiteBookRepo(db.Conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner")
	b := createBook(t, books, owner.ID, "Dune")

	got, err := books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	ok, err := books.Exists(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = books.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := books.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = books.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestInteractionRepo_Snapshot(t *testing.T) {
	db := newTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	books := NewSQLiteBookRepo(db.Conn)
	repo := NewSQLiteInteractionRepo(db.Conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner")
	u1 := createUser(t, users, "reader1")
	u2 := createUser(t, users, "reader2")
	b := createBook(t, books, owner.ID, "Dune")

	added, err := repo.Add(ctx, models.InteractionLike, b.ID, u1.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, models.InteractionLike, b.ID, u1.ID)
	require.NoError(t, err)
	assert.False(t, added, "second like is a no-op")

	_, err = repo.Add(ctx, models.InteractionDislike, b.ID, u2.ID)
	require.NoError(t, err)

	snap, err := repo.Snapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.BookInteraction{
		BookID:       b.ID,
		LikeCount:    1,
		DislikeCount: 1,
		LikedBy:      []string{u1.ID},
		DislikedBy:   []string{u2.ID},
	}, snap)

	removed, err := repo.Remove(ctx, models.InteractionLike, b.ID, u1.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, models.InteractionLike, b.ID, u1.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	snap, err = repo.Snapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.LikeCount)
	assert.Empty(t, snap.LikedBy)
}
