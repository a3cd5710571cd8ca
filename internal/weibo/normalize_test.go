package weibo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeDetail struct {
	status *Status
	err    error
	calls  int
}

func (f *fakeDetail) Detail(_ context.Context, _ string) (*Status, error) {
	f.calls++
	return f.status, f.err
}

func renderTime(t *testing.T, raw string) string {
	t.Helper()
	tm, err := time.Parse(createdAtLayout, raw)
	if err != nil {
		t.Fatalf("parse test timestamp %q: %v", raw, err)
	}
	return tm.Local().Format(renderLayout)
}

func baseStatus() *Status {
	return &Status{
		Bid:       "NqA1z",
		Text:      "plain body",
		CreatedAt: "Thu May 02 21:00:00 +0800 2024",
		User:      User{ID: 7654321, ScreenName: "etfwatch"},
	}
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()

	t.Run("plain post", func(t *testing.T) {
		st := baseStatus()
		n := NewNormalizer(&fakeDetail{})

		post, err := n.Normalize(ctx, st)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff := cmp.Diff("plain body", post.Title); diff != "" {
			t.Errorf("title mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("https://weibo.com/7654321/NqA1z", post.Link); diff != "" {
			t.Errorf("link mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(renderTime(t, st.CreatedAt), post.CreatedAt); diff != "" {
			t.Errorf("created_at mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("etfwatch", post.Author); diff != "" {
			t.Errorf("author mismatch (-want +got):\n%s", diff)
		}
		if len(post.Media) != 0 {
			t.Errorf("expected no media, got %v", post.Media)
		}
	})

	t.Run("markup stripped, breaks preserved", func(t *testing.T) {
		st := baseStatus()
		st.Text = `line one<br />line two with a <a href="https://weibo.com/tag">tag</a> &amp; an entity`
		n := NewNormalizer(&fakeDetail{})

		post, err := n.Normalize(ctx, st)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "line one\nline two with a tag & an entity"
		if diff := cmp.Diff(want, post.Title); diff != "" {
			t.Errorf("title mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed timestamp drops item", func(t *testing.T) {
		st := baseStatus()
		st.CreatedAt = "2024-05-02 21:00"
		n := NewNormalizer(&fakeDetail{})

		_, err := n.Normalize(ctx, st)
		if !errors.Is(err, ErrMalformedTimestamp) {
			t.Fatalf("want ErrMalformedTimestamp, got %v", err)
		}
	})

	t.Run("repost with visible original", func(t *testing.T) {
		st := baseStatus()
		st.Position = repostPosition
		st.Retweeted = &Retweet{
			RawText: "the original take",
			User:    &User{ID: 99, ScreenName: "origauthor"},
		}
		n := NewNormalizer(&fakeDetail{})

		post, err := n.Normalize(ctx, st)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !post.IsRepost {
			t.Error("expected IsRepost")
		}
		want := "plain body//@origauthor: the original take"
		if diff := cmp.Diff(want, post.Title); diff != "" {
			t.Errorf("title mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("origauthor", post.RepostAuthor); diff != "" {
			t.Errorf("repost author mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("repost with deleted original gets placeholder", func(t *testing.T) {
		st := baseStatus()
		st.Position = repostPosition
		st.Retweeted = &Retweet{RawText: ""}
		n := NewNormalizer(&fakeDetail{})

		post, err := n.Normalize(ctx, st)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "plain body" + repostGonePlaceholder
		if diff := cmp.Diff(want, post.Title); diff != "" {
			t.Errorf("title mismatch (-want +got):\n%s", diff)
		}
		if post.RepostAuthor != "" || post.RepostText != "" {
			t.Errorf("expected empty repost fields, got %q %q", post.RepostAuthor, post.RepostText)
		}
	})

	t.Run("media mapped to large urls in order", func(t *testing.T) {
		st := baseStatus()
		st.Pics = []Picture{pic("https://wx1.sinaimg.cn/large/a.jpg"), pic("https://wx2.sinaimg.cn/large/b.jpg")}
		n := NewNormalizer(&fakeDetail{})

		post, err := n.Normalize(ctx, st)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://wx1.sinaimg.cn/large/a.jpg", "https://wx2.sinaimg.cn/large/b.jpg"}
		if diff := cmp.Diff(want, post.Media); diff != "" {
			t.Errorf("media mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("long-form item normalizes the detail record", func(t *testing.T) {
		full := baseStatus()
		full.Bid = "NqL9w"
		full.Text = "the full body"
		full.IsLongText = true // detail endpoint keeps the flag set
		fd := &fakeDetail{status: full}

		truncated := baseStatus()
		truncated.Bid = "NqL9w"
		truncated.Text = "the full…"
		truncated.IsLongText = true

		n := NewNormalizer(fd)
		got, err := n.Normalize(ctx, truncated)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		direct := *full
		direct.IsLongText = false
		want, err := NewNormalizer(&fakeDetail{}).Normalize(ctx, &direct)
		if err != nil {
			t.Fatalf("normalize detail directly: %v", err)
		}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("post mismatch (-want +got):\n%s", diff)
		}
		if fd.calls != 1 {
			t.Errorf("expected 1 detail lookup, got %d", fd.calls)
		}
	})

	t.Run("long-form detail failure drops item", func(t *testing.T) {
		st := baseStatus()
		st.IsLongText = true
		n := NewNormalizer(&fakeDetail{err: fmt.Errorf("boom")})

		_, err := n.Normalize(ctx, st)
		if !errors.Is(err, ErrDetailUnavailable) {
			t.Fatalf("want ErrDetailUnavailable, got %v", err)
		}
	})
}

func pic(url string) Picture {
	var p Picture
	p.Large.URL = url
	return p
}
