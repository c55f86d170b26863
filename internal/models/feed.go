package models

import "time"

// PubDate policies for a feed source. "ingestion" stamps every item
// with the time it was ingested so fresh runs surface at the top;
// "feed" keeps the timestamp the feed itself supplied.
const (
	PubDateModeIngestion = "ingestion"
	PubDateModeFeed      = "feed"
)

// Feed represents a row in the 'feeds' table
type Feed struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	FeedURL     string    `db:"feed_url"`
	Type        string    `db:"type"`
	PubDateMode string    `db:"pub_date_mode"`
	CreatedAt   time.Time `db:"created_at"`
}

// NewFeed creates a new Feed with default values
func NewFeed() *Feed {
	return &Feed{
		PubDateMode: PubDateModeIngestion,
		CreatedAt:   time.Now(),
	}
}
