package main

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnfan/chinaetfs-weibo/internal/config"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:           "weibot",
	Short:         "Forward new weibo posts to a Telegram chat",
	Long:          "weibot polls configured weibo accounts, deduplicates posts against a local database, forwards new posts with their media to a Telegram chat, and archives media locally.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("weibot %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// telegramHTTPClient builds the outbound Telegram transport, routed through
// the configured proxy when one is set. Feed and archive traffic does not
// use the proxy.
func telegramHTTPClient(cfg *config.Config) (*http.Client, error) {
	if cfg.ProxyURL == "" {
		return &http.Client{Timeout: 60 * time.Second}, nil
	}
	proxy, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PROXY_URL %q: %w", cfg.ProxyURL, err)
	}
	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxy)},
	}, nil
}
