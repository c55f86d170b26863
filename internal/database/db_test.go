package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, DeleteDB(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "database file removed")
}

func TestDeleteDBMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-created.db")
	assert.NoError(t, DeleteDB(path), "deleting a missing database is a no-op")
}
