package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/nnfan/chinaetfs-weibo/internal/archive"
	"github.com/nnfan/chinaetfs-weibo/internal/config"
	"github.com/nnfan/chinaetfs-weibo/internal/notify"
	"github.com/nnfan/chinaetfs-weibo/internal/pipeline"
	"github.com/nnfan/chinaetfs-weibo/internal/storage"
	"github.com/nnfan/chinaetfs-weibo/internal/weibo"
)

var runInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all configured sources once (or on an interval)",
	RunE:  runAction,
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "poll interval; 0 runs once and exits")
	rootCmd.AddCommand(runCmd)
}

func runAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o750); err != nil {
		return fmt.Errorf("create media directory %s: %w", cfg.MediaDir, err)
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()

	tgClient, err := telegramHTTPClient(cfg)
	if err != nil {
		return err
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, tgClient)
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}

	feed := weibo.New(http.DefaultClient)
	pipe := pipeline.New(
		cfg.WeiboUIDs,
		feed,
		weibo.NewNormalizer(feed),
		store,
		notify.New(api, cfg.TelegramChatID, log),
		archive.New(http.DefaultClient, cfg.MediaDir, log),
		log,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if runInterval > 0 {
		pipe.RunEvery(ctx, runInterval)
		return nil
	}
	return pipe.Run(ctx)
}
