package weibo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nnfan/chinaetfs-weibo/internal/model"
)

// createdAtLayout is the fixed textual timestamp format of the API,
// e.g. "Thu May 02 21:13:17 +0800 2024".
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// renderLayout is the minute-precision local-time format shown to readers.
const renderLayout = "2006-01-02 15:04"

// Position flag value marking a forwarded status.
const repostPosition = 3

// repostGonePlaceholder is appended when the original of a repost is no
// longer visible. Wire-visible text, kept verbatim.
const repostGonePlaceholder = "//转发原文不可见，可能已被删除"

// Normalization failure kinds. Both are item-local: the pipeline drops the
// item and moves on.
var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrDetailUnavailable  = errors.New("detail unavailable")
)

// DetailFetcher resolves a truncated status to its full record.
type DetailFetcher interface {
	Detail(ctx context.Context, bid string) (*Status, error)
}

// Normalizer converts raw statuses into canonical posts.
type Normalizer struct {
	detail DetailFetcher
}

// NewNormalizer creates a Normalizer that resolves long-form statuses
// through the given fetcher.
func NewNormalizer(detail DetailFetcher) *Normalizer {
	return &Normalizer{detail: detail}
}

// Normalize converts one raw status into a canonical Post. A status flagged
// as long-form is replaced by its detail record before normalization, so the
// result never carries truncated text.
func (n *Normalizer) Normalize(ctx context.Context, st *Status) (*model.Post, error) {
	if st.IsLongText {
		full, err := n.detail.Detail(ctx, st.Bid)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDetailUnavailable, err)
		}
		full.IsLongText = false
		return n.Normalize(ctx, full)
	}

	created, err := time.Parse(createdAtLayout, st.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTimestamp, st.CreatedAt)
	}

	post := &model.Post{
		ID:        st.Bid,
		Link:      Permalink(st.User.ID, st.Bid),
		Author:    st.User.ScreenName,
		Title:     stripHTML(st.Text),
		CreatedAt: created.Local().Format(renderLayout),
	}

	// Forwarded posts get the repost chain appended. A missing or deleted
	// original is expected, never an error.
	if st.Position == repostPosition {
		post.IsRepost = true
		if st.Retweeted != nil && st.Retweeted.User != nil && st.Retweeted.User.ScreenName != "" {
			post.RepostAuthor = st.Retweeted.User.ScreenName
			post.RepostText = st.Retweeted.RawText
			post.Title = fmt.Sprintf("%s//@%s: %s", post.Title, post.RepostAuthor, post.RepostText)
		} else {
			post.Title += repostGonePlaceholder
		}
	}

	for _, pic := range st.Pics {
		if pic.Large.URL == "" {
			continue
		}
		post.Media = append(post.Media, pic.Large.URL)
	}

	return post, nil
}

// stripHTML converts the HTML-escaped status body to plain text. Break tags
// become literal newlines before the markup is dropped.
func stripHTML(s string) string {
	s = strings.NewReplacer("<br />", "\n", "<br/>", "\n", "<br>", "\n").Replace(s)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
