package models

import "time"

// Bookmark represents a row in the 'bookmarks' table. At most one
// bookmark exists per feed item; deleting the item cascades here.
type Bookmark struct {
	ID         int64     `db:"id"`
	FeedItemID int64     `db:"feed_item_id"`
	CreatedAt  time.Time `db:"created_at"`
}
