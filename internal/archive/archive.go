// Package archive saves post media to durable local storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Archiver downloads media files into a local directory. Archiving is a
// best-effort backup that runs after delivery: failures are logged and never
// affect the delivery outcome.
type Archiver struct {
	client HTTPClient
	dir    string
	log    *slog.Logger
}

// New creates an Archiver writing into dir.
func New(client HTTPClient, dir string, log *slog.Logger) *Archiver {
	return &Archiver{client: client, dir: dir, log: log}
}

// Archive downloads every media URL of the post. Filenames collide across
// posts when the last URL segment repeats; last write wins.
func (a *Archiver) Archive(ctx context.Context, media []string) {
	for _, u := range media {
		if ctx.Err() != nil {
			return
		}
		name := Filename(u)
		if name == "" {
			a.log.Warn("skip media with no usable filename", "url", u)
			continue
		}
		if err := a.download(ctx, u, filepath.Join(a.dir, name)); err != nil {
			a.log.Warn("archive media", "url", u, "error", err)
		}
	}
}

// Filename derives the archive filename from a media URL: the last path
// segment with any query string stripped.
func Filename(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndexByte(u, '/'); i >= 0 {
		u = u[i+1:]
	}
	return u
}

// download fetches one URL to dst, retrying transient failures with a short
// backoff. A 4xx response is permanent and fails immediately.
func (a *Archiver) download(ctx context.Context, url, dst string) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		f, err := os.Create(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			_ = f.Close()
			return retry.RetryableError(err)
		}
		return f.Close()
	})
}
