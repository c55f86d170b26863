package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"newsdeck/internal/database"
	"newsdeck/internal/models"
)

// MaxLimit caps a single page of results.
const MaxLimit = 500

// Outcome reports what an upsert did with a draft.
type Outcome struct {
	Inserted bool
	ID       int64
}

// Store provides deduplicated persistence of feed items plus the
// bookmark and seen side-tables. All failures surface as typed errors
// from errors.go; callers decide how far they propagate.
type Store struct {
	db *database.DB
}

// NewStore wraps an open database handle. Lifecycle of the handle is
// owned by the caller.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// UpsertItem inserts the item unless its link already exists. The
// conflict path deliberately leaves the stored row untouched so that
// re-running ingestion never resets the seen flag.
//
// pub_date is normalized to UTC before binding: the driver formats
// timestamps with their own offset and pub_date ordering compares
// text, so mixed offsets would misorder the feed.
func (s *Store) UpsertItem(ctx context.Context, item *models.FeedItem) (Outcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_items (title, link, pub_date, type, source, image_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING`,
		item.Title, item.Link, item.PubDate.UTC(), item.Type, item.Source, item.ImageURL)
	if err != nil {
		return Outcome{}, classify(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Outcome{}, classify(err)
	}
	if rowsAffected == 0 {
		log.Debug().Str("link", item.Link).Msg("Duplicate link detected, skipping")
		return Outcome{Inserted: false}, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Outcome{}, classify(err)
	}
	return Outcome{Inserted: true, ID: id}, nil
}

// ListItems returns a page of items ordered by publish date, newest
// first. typeFilter narrows by item type when non-empty.
func (s *Store) ListItems(ctx context.Context, limit, offset int, typeFilter string) ([]models.FeedItem, error) {
	limit, offset, err := checkPage(limit, offset)
	if err != nil {
		return nil, err
	}

	var items []models.FeedItem
	if typeFilter != "" {
		err = s.db.SelectContext(ctx, &items, `
			SELECT * FROM feed_items
			WHERE type = ?
			ORDER BY pub_date DESC, id DESC
			LIMIT ? OFFSET ?`, typeFilter, limit, offset)
	} else {
		err = s.db.SelectContext(ctx, &items, `
			SELECT * FROM feed_items
			ORDER BY pub_date DESC, id DESC
			LIMIT ? OFFSET ?`, limit, offset)
	}
	if err != nil {
		return nil, classify(err)
	}
	if items == nil {
		items = []models.FeedItem{}
	}
	return items, nil
}

// ListBookmarks returns bookmarked items ordered by when the bookmark
// was created, newest first (not by item publish time).
func (s *Store) ListBookmarks(ctx context.Context, limit, offset int) ([]models.FeedItem, error) {
	limit, offset, err := checkPage(limit, offset)
	if err != nil {
		return nil, err
	}

	var items []models.FeedItem
	err = s.db.SelectContext(ctx, &items, `
		SELECT fi.* FROM feed_items fi
		JOIN bookmarks b ON b.feed_item_id = fi.id
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	if items == nil {
		items = []models.FeedItem{}
	}
	return items, nil
}

// AddBookmark bookmarks an item. Bookmarking an already-bookmarked
// item is a no-op; a missing item is ErrNotFound.
func (s *Store) AddBookmark(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (feed_item_id) VALUES (?)
		ON CONFLICT(feed_item_id) DO NOTHING`, itemID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return classify(err)
	}
	return nil
}

// RemoveBookmark deletes an item's bookmark; removing a bookmark that
// does not exist is a no-op.
func (s *Store) RemoveBookmark(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE feed_item_id = ?`, itemID)
	if err != nil {
		return classify(err)
	}
	return nil
}

// IsBookmarked reports whether the item currently has a bookmark.
func (s *Store) IsBookmarked(ctx context.Context, itemID int64) (bool, error) {
	b, err := s.GetBookmark(ctx, itemID)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// GetBookmark fetches the item's bookmark row, or nil when the item
// has none.
func (s *Store) GetBookmark(ctx context.Context, itemID int64) (*models.Bookmark, error) {
	var b models.Bookmark
	err := s.db.GetContext(ctx, &b, `SELECT * FROM bookmarks WHERE feed_item_id = ?`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &b, nil
}

// BatchIsBookmarked resolves bookmark status for a set of ids in one
// query. Every requested id appears in the result; unknown ids map to
// false rather than being omitted.
func (s *Store) BatchIsBookmarked(ctx context.Context, itemIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		result[id] = false
	}
	if len(itemIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT feed_item_id FROM bookmarks WHERE feed_item_id IN (?)`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	var bookmarked []int64
	if err := s.db.SelectContext(ctx, &bookmarked, s.db.Rebind(query), args...); err != nil {
		return nil, classify(err)
	}
	for _, id := range bookmarked {
		result[id] = true
	}
	return result, nil
}

// MarkSeen flips an item's seen flag to true. Marking an already-seen
// item succeeds; there is no way back to unseen.
func (s *Store) MarkSeen(ctx context.Context, itemID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE feed_items SET seen = 1 WHERE id = ?`, itemID)
	if err != nil {
		return classify(err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes an item; its bookmark, if any, goes with it.
func (s *Store) DeleteItem(ctx context.Context, itemID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feed_items WHERE id = ?`, itemID)
	if err != nil {
		return classify(err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOldItems removes items older than the retention window.
// Bookmarked items are kept regardless of age.
func (s *Store) PurgeOldItems(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("%w: retentionDays must be positive", ErrInvalidQuery)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	cutoffStr := cutoff.Format("2006-01-02 15:04:05")

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM feed_items
		WHERE created_at < ?
		AND id NOT IN (SELECT feed_item_id FROM bookmarks)`, cutoffStr)
	if err != nil {
		return 0, classify(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		log.Warn().Err(err).Msg("Could not get rows affected after purge")
		return 0, nil
	}
	return rowsAffected, nil
}

// ListFeeds returns all configured feed sources in configuration order.
func (s *Store) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	if err := s.db.SelectContext(ctx, &feeds, `SELECT * FROM feeds ORDER BY id ASC`); err != nil {
		return nil, classify(err)
	}
	return feeds, nil
}

// AddFeed registers a feed source; a duplicate feed_url is skipped.
func (s *Store) AddFeed(ctx context.Context, f *models.Feed) (Outcome, error) {
	if f.PubDateMode == "" {
		f.PubDateMode = models.PubDateModeIngestion
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (name, feed_url, type, pub_date_mode)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(feed_url) DO NOTHING`,
		f.Name, f.FeedURL, f.Type, f.PubDateMode)
	if err != nil {
		return Outcome{}, classify(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Outcome{}, classify(err)
	}
	if rowsAffected == 0 {
		return Outcome{Inserted: false}, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Outcome{}, classify(err)
	}
	return Outcome{Inserted: true, ID: id}, nil
}

// GetItem fetches a single item by id.
func (s *Store) GetItem(ctx context.Context, itemID int64) (*models.FeedItem, error) {
	var item models.FeedItem
	err := s.db.GetContext(ctx, &item, `SELECT * FROM feed_items WHERE id = ?`, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}
	return &item, nil
}

// checkPage validates and clamps pagination input.
func checkPage(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("%w: limit and offset must be non-negative", ErrInvalidQuery)
	}
	if limit == 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, offset, nil
}
