// Package weibo talks to the m.weibo.cn JSON API and normalizes its
// statuses into canonical posts.
package weibo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Container ID prefixes of the mobile API. The timeline container lists a
// user's statuses, the profile container carries account metadata.
const (
	timelineContainer = "107603"
	profileContainer  = "100505"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// User identifies the posting account of a status.
type User struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name"`
}

// Picture is one attachment of a status. Large carries the
// highest-resolution variant.
type Picture struct {
	Large struct {
		URL string `json:"url"`
	} `json:"large"`
}

// Retweet is the embedded original of a forwarded status. User is nil when
// the original has been deleted or made private.
type Retweet struct {
	RawText string `json:"raw_text"`
	User    *User  `json:"user"`
}

// Status is one raw feed item as returned by the timeline and detail
// endpoints.
type Status struct {
	Bid        string    `json:"bid"`
	Text       string    `json:"text"`
	CreatedAt  string    `json:"created_at"`
	IsLongText bool      `json:"isLongText"`
	Position   int       `json:"weibo_position"`
	User       User      `json:"user"`
	Pics       []Picture `json:"pics"`
	Retweeted  *Retweet  `json:"retweeted_status"`
}

type card struct {
	CardType int     `json:"card_type"`
	Mblog    *Status `json:"mblog"`
}

type timelineResponse struct {
	Ok   int `json:"ok"`
	Data struct {
		Cards []card `json:"cards"`
	} `json:"data"`
}

type detailResponse struct {
	Ok   int    `json:"ok"`
	Data Status `json:"data"`
}

type profileResponse struct {
	Ok   int `json:"ok"`
	Data struct {
		UserInfo struct {
			ScreenName string `json:"screen_name"`
		} `json:"userInfo"`
	} `json:"data"`
}

// Client fetches timelines, status details, and profiles.
type Client struct {
	client  HTTPClient
	baseURL string
}

// New creates a Client with the given HTTP client.
func New(client HTTPClient) *Client {
	return &Client{
		client:  client,
		baseURL: "https://m.weibo.cn",
	}
}

// Timeline returns one page of a user's statuses in the API's native order,
// newest first. Cards that are not statuses (ads, pins) are skipped.
func (c *Client) Timeline(ctx context.Context, uid string) ([]Status, error) {
	u := fmt.Sprintf("%s/api/container/getIndex?containerid=%s%s", c.baseURL, timelineContainer, url.QueryEscape(uid))

	var resp timelineResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch timeline for %s: %w", uid, err)
	}
	if resp.Ok != 1 {
		return nil, fmt.Errorf("fetch timeline for %s: api returned ok=%d", uid, resp.Ok)
	}

	var statuses []Status
	for _, card := range resp.Data.Cards {
		if card.Mblog == nil {
			continue
		}
		statuses = append(statuses, *card.Mblog)
	}
	return statuses, nil
}

// Detail returns the full record of a single status by its bid. Used for
// long-form items whose timeline text is truncated.
func (c *Client) Detail(ctx context.Context, bid string) (*Status, error) {
	u := fmt.Sprintf("%s/statuses/show?id=%s", c.baseURL, url.QueryEscape(bid))

	var resp detailResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch detail %s: %w", bid, err)
	}
	if resp.Ok != 1 {
		return nil, fmt.Errorf("fetch detail %s: api returned ok=%d", bid, resp.Ok)
	}
	return &resp.Data, nil
}

// ScreenName resolves a numeric account ID to its display name.
func (c *Client) ScreenName(ctx context.Context, uid string) (string, error) {
	u := fmt.Sprintf("%s/api/container/getIndex?containerid=%s%s", c.baseURL, profileContainer, url.QueryEscape(uid))

	var resp profileResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return "", fmt.Errorf("fetch profile for %s: %w", uid, err)
	}
	if resp.Data.UserInfo.ScreenName == "" {
		return "", fmt.Errorf("fetch profile for %s: no screen name in response", uid)
	}
	return resp.Data.UserInfo.ScreenName, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; chinaetfs-weibo/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Permalink returns the stable PC-site URL of a status. It is identical for
// both ingestion paths (timeline listing and detail lookup), which is why it
// serves as the dedup key.
func Permalink(userID int64, bid string) string {
	return fmt.Sprintf("https://weibo.com/%d/%s", userID, bid)
}
