// Package notify delivers normalized posts to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nnfan/chinaetfs-weibo/internal/model"
)

// ErrTransport marks a delivery failure below the Telegram API: the request
// never got an API response (dead proxy, DNS, TLS). The pipeline treats it
// as run-fatal — retrying every post against a broken transport only floods
// the log.
var ErrTransport = errors.New("telegram transport unreachable")

// telegramAPI is the subset of the bot API the notifier uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Notifier sends the text notification and fans out media for one post.
type Notifier struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
	pause  time.Duration
}

// New creates a Notifier sending to the given chat.
func New(api telegramAPI, chatID int64, log *slog.Logger) *Notifier {
	return &Notifier{
		api:    api,
		chatID: chatID,
		log:    log,
		pause:  50 * time.Millisecond,
	}
}

// SetRateLimit overrides the pause between outbound calls (useful for testing).
func (n *Notifier) SetRateLimit(d time.Duration) {
	n.pause = d
}

// FormatMessage renders the two-line text notification: a clickable
// timestamp link, then the post body.
func FormatMessage(post *model.Post) string {
	return fmt.Sprintf("[%s](%s)\n\n%s", post.CreatedAt, post.Link, post.Title)
}

// Deliver sends the text notification followed by the post's media.
// Telegram API rejections of media are handled inside (logged, per-item
// fallback); only a text-send failure or a transport-level failure is
// returned.
func (n *Notifier) Deliver(ctx context.Context, post *model.Post) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(post))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		if !isAPIError(err) {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return fmt.Errorf("send message: %w", err)
	}
	n.throttle()

	return n.sendMedia(ctx, post.Media)
}

// sendMedia applies the fanout policy: up to two attachments go out as
// independent photo sends, up to ten as one grouped call, more than ten as
// two grouped calls split down the middle.
func (n *Notifier) sendMedia(ctx context.Context, media []string) error {
	switch count := len(media); {
	case count == 0:
		return nil
	case count <= 2:
		for _, u := range media {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := n.sendPhoto(u); err != nil {
				if errors.Is(err, ErrTransport) {
					return err
				}
				// One bad URL must not block the rest.
				n.log.Warn("send photo", "url", u, "error", err)
			}
		}
		return nil
	case count <= 10:
		return n.sendGroup(ctx, media)
	default:
		half := count / 2
		if err := n.sendGroup(ctx, media[:half]); err != nil {
			return err
		}
		return n.sendGroup(ctx, media[half:])
	}
}

// sendGroup sends one grouped media call. Telegram rejects some groups
// atomically (a single malformed URL poisons the batch), so an API
// rejection downgrades into per-item sends to isolate the bad item.
func (n *Notifier) sendGroup(ctx context.Context, urls []string) error {
	group := make([]interface{}, 0, len(urls))
	for _, u := range urls {
		group = append(group, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(u)))
	}

	_, err := n.api.SendMediaGroup(tgbotapi.NewMediaGroup(n.chatID, group))
	if err == nil {
		n.throttle()
		return nil
	}
	if !isAPIError(err) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	n.log.Warn("media group rejected, sending items individually", "count", len(urls), "error", err)
	for _, u := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := n.sendPhoto(u); err != nil {
			if errors.Is(err, ErrTransport) {
				return err
			}
			n.log.Warn("send photo", "url", u, "error", err)
		}
	}
	return nil
}

func (n *Notifier) sendPhoto(url string) error {
	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileURL(url))
	if _, err := n.api.Send(photo); err != nil {
		if !isAPIError(err) {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return fmt.Errorf("send photo: %w", err)
	}
	n.throttle()
	return nil
}

// throttle keeps sends under Telegram's ~20 messages/sec limit.
func (n *Notifier) throttle() {
	if n.pause > 0 {
		time.Sleep(n.pause)
	}
}

func isAPIError(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr)
}
