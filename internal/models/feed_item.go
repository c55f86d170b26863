package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// FeedItem represents a row in the feed_items table
type FeedItem struct {
	ID        int64          `db:"id"`
	Title     string         `db:"title"`
	Link      string         `db:"link"`
	PubDate   time.Time      `db:"pub_date"`
	Type      string         `db:"type"`
	Source    string         `db:"source"`
	ImageURL  sql.NullString `db:"image_url"`
	Seen      bool           `db:"seen"`
	CreatedAt time.Time      `db:"created_at"`
}

// MarshalJSON flattens nullable columns so clients see plain strings.
func (i FeedItem) MarshalJSON() ([]byte, error) {
	type itemJSON struct {
		ID        int64     `json:"id"`
		Title     string    `json:"title"`
		Link      string    `json:"link"`
		PubDate   time.Time `json:"pubDate"`
		Type      string    `json:"type"`
		Source    string    `json:"source"`
		ImageURL  string    `json:"imageUrl,omitempty"`
		Seen      bool      `json:"seen"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := itemJSON{
		ID:        i.ID,
		Title:     i.Title,
		Link:      i.Link,
		PubDate:   i.PubDate,
		Type:      i.Type,
		Source:    i.Source,
		Seen:      i.Seen,
		CreatedAt: i.CreatedAt,
	}
	if i.ImageURL.Valid {
		out.ImageURL = i.ImageURL.String
	}
	return json.Marshal(out)
}
