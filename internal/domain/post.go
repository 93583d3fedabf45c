package domain

import "time"

// PostStatus enumerates listing states.
type PostStatus string

const (
	PostStatusActive PostStatus = "active"
	PostStatusSold   PostStatus = "sold"
)

// Post is a classified-ad listing published to the channel.
// Price is stored as entered after normalization: a bare number,
// "торг" (negotiable) or "бесплатно" (free).
type Post struct {
	ID          int64
	UserID      int64
	PhotoID     string
	Title       string
	Price       string
	Description string
	Status      PostStatus
	CreatedAt   time.Time
}
