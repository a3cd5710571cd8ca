// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	WeiboUIDs        []string
	TelegramBotToken string
	TelegramChatID   int64
	DatabasePath     string
	MediaDir         string
	ProxyURL         string
	LogLevel         string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	rawUIDs := os.Getenv("WEIBO_UIDS")
	if rawUIDs == "" {
		return nil, fmt.Errorf("WEIBO_UIDS is required")
	}
	var uids []string
	for _, s := range strings.Split(rawUIDs, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uids = append(uids, s)
	}
	if len(uids) == 0 {
		return nil, fmt.Errorf("WEIBO_UIDS contains no usable IDs")
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rawChatID := os.Getenv("TELEGRAM_CHAT_ID")
	if rawChatID == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	chatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", rawChatID, err)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/weibo.db"
	}

	mediaDir := os.Getenv("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = "./images"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		WeiboUIDs:        uids,
		TelegramBotToken: token,
		TelegramChatID:   chatID,
		DatabasePath:     dbPath,
		MediaDir:         mediaDir,
		ProxyURL:         os.Getenv("PROXY_URL"),
		LogLevel:         logLevel,
	}, nil
}
