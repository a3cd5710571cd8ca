// Package pipeline orchestrates the fetch → normalize → dedup → deliver →
// archive → commit flow for each configured source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nnfan/chinaetfs-weibo/internal/model"
	"github.com/nnfan/chinaetfs-weibo/internal/notify"
	"github.com/nnfan/chinaetfs-weibo/internal/storage"
	"github.com/nnfan/chinaetfs-weibo/internal/weibo"
)

// Feed is the interface for fetching one page of a source's statuses.
type Feed interface {
	Timeline(ctx context.Context, uid string) ([]weibo.Status, error)
}

// Normalizer converts a raw status into a canonical post.
type Normalizer interface {
	Normalize(ctx context.Context, st *weibo.Status) (*model.Post, error)
}

// Notifier delivers one post to the messaging endpoint.
type Notifier interface {
	Deliver(ctx context.Context, post *model.Post) error
}

// Archiver saves a post's media locally, best effort.
type Archiver interface {
	Archive(ctx context.Context, media []string)
}

// Pipeline processes all configured sources strictly sequentially: one
// source at a time, one item at a time, oldest first. Sequencing keeps
// delivery order chronological and keeps the check-then-record dedup
// sequence from racing with itself.
type Pipeline struct {
	uids     []string
	feed     Feed
	norm     Normalizer
	store    storage.Storage
	notifier Notifier
	archiver Archiver
	log      *slog.Logger
}

// New creates a Pipeline over the given collaborators.
func New(uids []string, feed Feed, norm Normalizer, store storage.Storage, notifier Notifier, archiver Archiver, log *slog.Logger) *Pipeline {
	return &Pipeline{
		uids:     uids,
		feed:     feed,
		norm:     norm,
		store:    store,
		notifier: notifier,
		archiver: archiver,
		log:      log,
	}
}

// Run processes every configured source once. It returns early only on
// run-fatal conditions: an unreachable dedup store or a dead outbound
// transport. Source and item failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Info("run started", "sources", len(p.uids))

	for _, uid := range p.uids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.processSource(ctx, uid); err != nil {
			return err
		}
	}

	p.log.Info("run finished")
	return nil
}

// RunEvery repeats Run on a fixed interval, blocking until ctx is
// cancelled. Run errors are logged; the next tick starts a fresh attempt.
func (p *Pipeline) RunEvery(ctx context.Context, interval time.Duration) {
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Error("run aborted", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.log.Error("run aborted", "error", err)
			}
		}
	}
}

// processSource handles one page of one source. A fetch failure is
// source-local: it skips the rest of this source and lets the caller move
// on. Only run-fatal errors are returned.
func (p *Pipeline) processSource(ctx context.Context, uid string) error {
	p.log.Info("checking source", "uid", uid)

	statuses, err := p.feed.Timeline(ctx, uid)
	if err != nil {
		p.log.Error("fetch timeline", "uid", uid, "error", err)
		return nil
	}

	sent := 0
	// The API page is newest-first; walk it backwards so delivery is
	// chronological and an interrupted run resumes forward in time.
	for i := len(statuses) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delivered, err := p.processItem(ctx, &statuses[i])
		if err != nil {
			return err
		}
		if delivered {
			sent++
		}
	}

	p.log.Info("source done", "uid", uid, "delivered", sent)
	return nil
}

// processItem runs one status through normalize → dedup check → deliver →
// archive → commit. Item-local failures are logged and swallowed; the
// returned error is always run-fatal.
func (p *Pipeline) processItem(ctx context.Context, st *weibo.Status) (bool, error) {
	post, err := p.norm.Normalize(ctx, st)
	if err != nil {
		p.log.Warn("drop item", "bid", st.Bid, "error", err)
		return false, nil
	}

	isNew, err := p.store.IsNew(ctx, post.Link)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	if !isNew {
		p.log.Debug("already seen", "link", post.Link)
		return false, nil
	}

	if err := p.notifier.Deliver(ctx, post); err != nil {
		if errors.Is(err, notify.ErrTransport) {
			return false, err
		}
		// Item-local delivery failure. The post stays unrecorded so the
		// next run retries it (at-least-once).
		p.log.Error("deliver post", "link", post.Link, "error", err)
		return false, nil
	}

	p.archiver.Archive(ctx, post.Media)

	if err := p.store.Record(ctx, post); err != nil {
		return false, fmt.Errorf("commit post: %w", err)
	}

	p.log.Info("delivered", "link", post.Link, "created_at", post.CreatedAt, "media", len(post.Media))
	return true, nil
}
