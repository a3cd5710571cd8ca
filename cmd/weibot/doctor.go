package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnfan/chinaetfs-weibo/internal/config"
	"github.com/nnfan/chinaetfs-weibo/internal/storage"
	"github.com/nnfan/chinaetfs-weibo/internal/weibo"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, source IDs, and transport reachability",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	cfg, err := config.Load()
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config (%d sources, chat %d)", len(cfg.WeiboUIDs), cfg.TelegramChatID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Source IDs: a valid numeric ID resolves to a screen name.
	feed := weibo.New(http.DefaultClient)
	for _, uid := range cfg.WeiboUIDs {
		name, err := feed.ScreenName(ctx, uid)
		if err != nil {
			printCheck(false, "weibo id %s: %v", uid, err)
			ok = false
			continue
		}
		printCheck(true, "weibo id %s (@%s)", uid, name)
	}

	// Outbound transport: the Telegram API host must answer through the
	// configured proxy.
	tgClient, err := telegramHTTPClient(cfg)
	if err != nil {
		printCheck(false, "proxy: %v", err)
		ok = false
	} else {
		tgClient.Timeout = 5 * time.Second
		if err := probeTelegram(ctx, tgClient); err != nil {
			printCheck(false, "telegram transport: %v", err)
			ok = false
		} else {
			printCheck(true, "telegram transport reachable")
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		printCheck(false, "database: %v", err)
		ok = false
	} else {
		recs, err := store.ListSeen(ctx, 1)
		switch {
		case err != nil:
			printCheck(false, "database %s: %v", cfg.DatabasePath, err)
			ok = false
		case len(recs) == 0:
			printCheck(true, "database %s (empty)", cfg.DatabasePath)
		default:
			printCheck(true, "database %s (last record %s)", cfg.DatabasePath, recs[0].CreatedAt)
		}
		_ = store.Close()
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func probeTelegram(ctx context.Context, client *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.telegram.org", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func printCheck(ok bool, format string, args ...any) {
	mark := "ok"
	if !ok {
		mark = "FAIL"
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}
