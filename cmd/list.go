package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rxng/mangapark-dl/internal/config"
	"github.com/rxng/mangapark-dl/internal/downloader"
	"github.com/rxng/mangapark-dl/internal/mangapark"
	"github.com/rxng/mangapark-dl/internal/ui"
	"github.com/rxng/mangapark-dl/internal/util"

	"github.com/spf13/cobra"
)

var listURL string

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the chapters of a manga without downloading",
		RunE:  runList,
	}

	listCmd.Flags().StringVar(&listURL, "url", "", "manga page URL on mangapark")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		DefaultURL:   listURL,
	})
	if err != nil {
		return err
	}

	if cfg.DefaultURL == "" {
		fmt.Println("Please specify the URL of the manga on mangapark with --url.")
		return nil
	}

	logSvc := ui.NewLogger(cfg.Debug)
	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:     30 * time.Second,
		UserAgent:   util.PickUserAgent(cfg.UserAgent),
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		DebugLogger: logSvc,
	})
	if err != nil {
		return err
	}

	dl := downloader.New(downloader.Options{
		Client: client,
		Logger: logSvc,
	})

	cands, err := dl.Candidates(context.Background(), cfg.DefaultURL)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d chapters\n\n", mangapark.ParseMangaTitle(cfg.DefaultURL), len(cands))
	for i, c := range cands {
		fmt.Printf("%3d) %-10s [%g]  %s\n", i+1, c.Ref.Label, c.Number, c.URL)
	}

	return nil
}
