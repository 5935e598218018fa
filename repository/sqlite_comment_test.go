package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
)

func TestCommentRepo_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	books := NewSQLiteBookRepo(db.Conn)
	repo := NewSQLiteCommentRepo(db.Conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner")
	sender := createUser(t, users, "sender")
	b := createBook(t, books, owner.ID, "Dune")

	c := &models.Comment{BookID: b.ID, SenderID: sender.ID, Text: "great read"}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEmpty(t, c.ID)
	require.NotNil(t, c.Sender)
	assert.Equal(t, "sender", c.Sender.Username)

	require.NoError(t, repo.UpdateText(ctx, c.ID, "still great"))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "still great", got.Text)

	list, err := repo.ListByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), pkg.ErrNotFound)
}

func TestCommentRepo_UnknownBook(t *testing.T) {
	db := newTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	repo := NewSQLiteCommentRepo(db.Conn)

	sender := createUser(t, users, "sender")
	err := repo.Create(context.Background(), &models.Comment{BookID: "nope", SenderID: sender.ID, Text: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
