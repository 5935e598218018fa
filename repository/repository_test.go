package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	migrations, err := database.Migrations()
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "repo.db"), migrations, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func createBook(t *testing.T, repo BookRepository, ownerID, title string) *models.Book {
	t.Helper()
	b := &models.Book{OwnerID: ownerID, Title: title, Author: "Anon"}
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}
