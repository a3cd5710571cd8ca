// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"github.com/nnfan/chinaetfs-weibo/internal/model"
)

// Storage is the interface for the dedup store. The link column carries a
// uniqueness constraint, so Record is safe to call twice for the same post.
type Storage interface {
	// IsNew reports whether no record with this link exists yet.
	IsNew(ctx context.Context, link string) (bool, error)

	// Record inserts the seen-row for a delivered post. Inserting a link
	// that already exists is treated as "already recorded", not an error.
	Record(ctx context.Context, post *model.Post) error

	// ListSeen returns the stored records, newest first, up to limit.
	ListSeen(ctx context.Context, limit int) ([]model.SeenRecord, error)

	Close() error
}
