package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	email := "alice@example.com"
	u := &models.User{Username: "alice", Email: &email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)

	got, err := repo.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.Email)
	assert.Equal(t, email, *got.Email)
	assert.Nil(t, got.AvatarURL)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepo_Duplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	createUser(t, repo, "bob")

	err := repo.Create(ctx, &models.User{Username: "bob", PasswordHash: "x"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
