package importfeeds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdeck/internal/database"
	"newsdeck/internal/models"
	"newsdeck/internal/store"
)

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()

	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.NewStore(db)
	return NewImporter(st), st
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feeds.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportFeeds(t *testing.T) {
	imp, st := newTestImporter(t)

	csvPath := writeCSV(t, `name,feed_url,type,pub_date_mode
HackerNews,https://hnrss.org/newest,hackernews,
Factorio,https://www.reddit.com/r/factorio/top.rss,reddit,feed
`)

	require.NoError(t, imp.ImportFeeds(context.Background(), csvPath))

	feeds, err := st.ListFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	assert.Equal(t, "HackerNews", feeds[0].Name)
	assert.Equal(t, "https://hnrss.org/newest", feeds[0].FeedURL)
	assert.Equal(t, "hackernews", feeds[0].Type)
	assert.Equal(t, models.PubDateModeIngestion, feeds[0].PubDateMode, "empty mode column falls back to the default")

	assert.Equal(t, "Factorio", feeds[1].Name)
	assert.Equal(t, models.PubDateModeFeed, feeds[1].PubDateMode)
}

func TestImportFeedsColumnOrder(t *testing.T) {
	imp, st := newTestImporter(t)

	// Columns may come in any order; pub_date_mode is optional.
	csvPath := writeCSV(t, `type,name,feed_url
hackernews,HackerNews,https://hnrss.org/newest
`)

	require.NoError(t, imp.ImportFeeds(context.Background(), csvPath))

	feeds, err := st.ListFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "HackerNews", feeds[0].Name)
	assert.Equal(t, "https://hnrss.org/newest", feeds[0].FeedURL)
}

func TestImportFeedsSkipsDuplicatesAndBadRows(t *testing.T) {
	imp, st := newTestImporter(t)

	csvPath := writeCSV(t, `name,feed_url,type
HackerNews,https://hnrss.org/newest,hackernews
HN again,https://hnrss.org/newest,hackernews
,https://example.com/feed,hackernews

Factorio,https://www.reddit.com/r/factorio/top.rss,reddit
`)

	require.NoError(t, imp.ImportFeeds(context.Background(), csvPath))

	feeds, err := st.ListFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2, "duplicate URL and incomplete rows are skipped")
	assert.Equal(t, "HackerNews", feeds[0].Name)
	assert.Equal(t, "Factorio", feeds[1].Name)
}

func TestImportFeedsMissingColumn(t *testing.T) {
	imp, _ := newTestImporter(t)

	csvPath := writeCSV(t, `name,type
HackerNews,hackernews
`)

	err := imp.ImportFeeds(context.Background(), csvPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed_url")
}

func TestImportFeedsFileNotFound(t *testing.T) {
	imp, _ := newTestImporter(t)

	err := imp.ImportFeeds(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
