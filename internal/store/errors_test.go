package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdeck/internal/database"
	"newsdeck/internal/models"
)

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))

	var constraintErr *ConstraintError
	err := classify(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	assert.True(t, errors.As(err, &constraintErr))

	var unavailableErr *UnavailableError
	err = classify(sqlite3.Error{Code: sqlite3.ErrBusy})
	assert.True(t, errors.As(err, &unavailableErr))

	err = classify(errors.New("connection reset"))
	assert.True(t, errors.As(err, &unavailableErr))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintForeignKey,
	}))
	assert.False(t, isForeignKeyViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintUnique,
	}))
	assert.False(t, isForeignKeyViolation(errors.New("plain error")))
}

// newMockStore backs a Store with sqlmock so driver failures can be
// simulated without a real database.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewStore(&database.DB{DB: sqlx.NewDb(mockDB, "sqlite3")}), mock
}

func TestListItemsStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM feed_items").WillReturnError(errors.New("database is locked"))

	_, err := s.ListItems(context.Background(), 10, 0, "")
	require.Error(t, err)

	var unavailableErr *UnavailableError
	assert.True(t, errors.As(err, &unavailableErr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertItemStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO feed_items").WillReturnError(errors.New("disk I/O error"))

	_, err := s.UpsertItem(context.Background(), &models.FeedItem{
		Title: "Post", Link: "https://example.com", PubDate: time.Now(),
		Type: "article", Source: "hackernews",
	})
	require.Error(t, err)

	var unavailableErr *UnavailableError
	assert.True(t, errors.As(err, &unavailableErr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSeenStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE feed_items SET seen").WillReturnError(errors.New("database is locked"))

	err := s.MarkSeen(context.Background(), 1)
	require.Error(t, err)

	var unavailableErr *UnavailableError
	assert.True(t, errors.As(err, &unavailableErr))
}
