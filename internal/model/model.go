// Package model defines the domain types used across the application.
package model

import "time"

// Post is the canonical representation of one normalized weibo.
type Post struct {
	// ID is the opaque source identifier (the "bid" of the status).
	ID string
	// Link is the stable PC permalink. It is the dedup key: unique per
	// post and identical whether the post came from the timeline listing
	// or from a detail lookup.
	Link string
	// Author is the display name of the posting account.
	Author string
	// Title is the plain-text body with markup stripped and line breaks
	// preserved. For reposts it carries the appended repost chain.
	Title string
	// CreatedAt is the post timestamp rendered in local time at minute
	// precision, e.g. "2024-05-01 13:37".
	CreatedAt string
	// Media holds the full-size attachment URLs in source order.
	Media []string
	// IsRepost marks a forwarded post.
	IsRepost bool
	// RepostAuthor and RepostText are set only when IsRepost is true and
	// the original post is still visible.
	RepostAuthor string
	RepostText   string
}

// SeenRecord is one row of the dedup table. Rows are append-only: written
// exactly once per delivered post and never updated or expired.
type SeenRecord struct {
	Summary   string
	Link      string
	CreatedAt string
	StoredAt  time.Time
}
