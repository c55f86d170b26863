package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdeck/internal/database"
	"newsdeck/internal/models"
	"newsdeck/internal/store"
)

const hnXML = `<rss version="2.0"><channel>
	<item><title>First (100 points)</title><link>https://example.com/1</link><pubDate>Thu, 22 May 2025 16:34:42 +0000</pubDate></item>
	<item><title>Second</title><link>https://example.com/2</link><pubDate>Thu, 22 May 2025 17:00:00 +0000</pubDate></item>
</channel></rss>`

const redditXML = `<feed xmlns="http://www.w3.org/2005/Atom">
	<entry><title>Factorio post</title><link href="https://reddit.example.com/1"/><category term="factorio"/><published>2025-05-22T10:21:17+00:00</published></entry>
</feed>`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.NewStore(db)
}

func xmlServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func addFeed(t *testing.T, st *store.Store, name, url, feedType string) {
	t.Helper()

	_, err := st.AddFeed(context.Background(), &models.Feed{Name: name, FeedURL: url, Type: feedType})
	require.NoError(t, err)
}

func TestRunIngestsAllSources(t *testing.T) {
	st := newTestStore(t)
	hn := xmlServer(t, http.StatusOK, hnXML)
	reddit := xmlServer(t, http.StatusOK, redditXML)

	addFeed(t, st, "HackerNews", hn.URL, "hackernews")
	addFeed(t, st, "Factorio", reddit.URL, "reddit")

	runner := NewRunner(st, Options{WorkerCount: 2})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalNewItems)
	require.Len(t, result.Results, 2)

	assert.Equal(t, "HackerNews", result.Results[0].Feed, "results keep configuration order")
	assert.Equal(t, 2, result.Results[0].Processed)
	assert.Equal(t, 2, result.Results[0].NewItems)
	assert.Empty(t, result.Results[0].Error)

	assert.Equal(t, "Factorio", result.Results[1].Feed)
	assert.Equal(t, 1, result.Results[1].NewItems)

	items, err := st.ListItems(context.Background(), 10, 0, "")
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestRunPartialFailure(t *testing.T) {
	st := newTestStore(t)
	ok1 := xmlServer(t, http.StatusOK, hnXML)
	broken := xmlServer(t, http.StatusInternalServerError, "")
	ok2 := xmlServer(t, http.StatusOK, redditXML)

	addFeed(t, st, "First", ok1.URL, "hackernews")
	addFeed(t, st, "Broken", broken.URL, "hackernews")
	addFeed(t, st, "Third", ok2.URL, "reddit")

	runner := NewRunner(st, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success, "one broken source does not fail the job")
	assert.Equal(t, 3, result.TotalNewItems)
	require.Len(t, result.Results, 3)

	assert.Empty(t, result.Results[0].Error)
	assert.NotEmpty(t, result.Results[1].Error, "the broken source's failure is recorded")
	assert.Zero(t, result.Results[1].NewItems)
	assert.Empty(t, result.Results[2].Error)
	assert.Equal(t, 1, result.Results[2].NewItems)
}

func TestRunParseFailureRecorded(t *testing.T) {
	st := newTestStore(t)
	garbled := xmlServer(t, http.StatusOK, "<rss><channel><item>nope")

	addFeed(t, st, "Garbled", garbled.URL, "hackernews")

	runner := NewRunner(st, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.NotEmpty(t, result.Results[0].Error)
}

func TestRunUnsupportedFeedType(t *testing.T) {
	st := newTestStore(t)
	srv := xmlServer(t, http.StatusOK, hnXML)

	addFeed(t, st, "Mystery", srv.URL, "gopher")

	runner := NewRunner(st, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Contains(t, result.Results[0].Error, "unsupported feed type")
}

func TestRunIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	srv := xmlServer(t, http.StatusOK, hnXML)

	addFeed(t, st, "HackerNews", srv.URL, "hackernews")

	runner := NewRunner(st, Options{})

	first, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalNewItems)

	second, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.TotalNewItems, "re-running ingestion inserts nothing new")
	assert.Equal(t, 2, second.Results[0].Processed, "drafts are still attempted")

	processed, duplicates := runner.Stats()
	assert.EqualValues(t, 2, processed)
	assert.EqualValues(t, 2, duplicates)
}

func TestRunFeedTimePolicy(t *testing.T) {
	st := newTestStore(t)
	srv := xmlServer(t, http.StatusOK, redditXML)

	_, err := st.AddFeed(context.Background(), &models.Feed{
		Name: "Factorio", FeedURL: srv.URL, Type: "reddit",
		PubDateMode: models.PubDateModeFeed,
	})
	require.NoError(t, err)

	runner := NewRunner(st, Options{})
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	items, err := st.ListItems(context.Background(), 10, 0, "")
	require.NoError(t, err)
	require.Len(t, items, 1)

	want := time.Date(2025, 5, 22, 10, 21, 17, 0, time.UTC)
	assert.True(t, want.Equal(items[0].PubDate.UTC()), "feed-supplied timestamp is preserved")
}

func TestRunNoFeedsConfigured(t *testing.T) {
	st := newTestStore(t)

	runner := NewRunner(st, Options{})
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.TotalNewItems)
	assert.Empty(t, result.Results)
}
