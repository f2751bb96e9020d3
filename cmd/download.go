package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rxng/mangapark-dl/internal/config"
	"github.com/rxng/mangapark-dl/internal/downloader"
	"github.com/rxng/mangapark-dl/internal/ui"
	"github.com/rxng/mangapark-dl/internal/util"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagURL      string
	flagChapter  string
	flagChapters []float64

	// runtime
	flagOutput   string
	flagHeight   int
	flagContinue bool
	flagDryRun   bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download manga chapters as one PDF per chapter. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "manga page URL on mangapark")
	downloadCmd.Flags().StringVar(&flagChapter, "chapter", "", "download a single chapter by number (e.g. 20 or 20.5)")
	downloadCmd.Flags().Float64SliceVar(&flagChapters, "chapters", nil, "inclusive chapter range, e.g. --chapters 18,20.5")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for chapter directories")
	downloadCmd.Flags().IntVar(&flagHeight, "height", 0, "resize page images to this height, keeping the aspect ratio")
	downloadCmd.Flags().BoolVar(&flagContinue, "continue-on-error", false, "keep going past a failed chapter instead of aborting the run")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be downloaded, don't download")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	rangeFlag := ""
	if len(flagChapters) > 0 {
		rangeFlag = fmt.Sprintf("%g,%g", flagChapters[0], flagChapters[len(flagChapters)-1])
	}

	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:    flagIgnoreConfig,
		Debug:           flagDebug,
		Output:          flagOutput,
		Height:          flagHeight,
		ContinueOnError: flagContinue,
		DefaultURL:      flagURL,
		DefaultChapter:  flagChapter,
		DefaultRange:    rangeFlag,
		Cookie:          flagCookie,
		CookieFile:      flagCookieFile,
		UserAgent:       flagUserAgent,
	})
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	if cfg.DefaultURL == "" {
		fmt.Println("Please specify the URL of the manga on mangapark, e.g.")
		fmt.Println("  mangapark-dl download --url https://mangapark.me/manga/ajin-miura-tsuina --chapter 20")
		return nil
	}

	sel, ok, err := buildSelection(cfg.DefaultChapter, cfg.DefaultRange)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Nothing selected. Use --chapter N or --chapters MIN,MAX.")
		return nil
	}

	if err := util.EnsureDir(cfg.Output); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

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

	ctx := context.Background()
	util.SetupInterruptHandler(cfg.Output)

	if flagDryRun {
		dl := downloader.New(downloader.Options{
			Client: client,
			Output: cfg.Output,
			Logger: logSvc,
		})

		cands, err := dl.Candidates(ctx, cfg.DefaultURL)
		if err != nil {
			return err
		}

		n := 0
		for _, c := range cands {
			if !sel.Matches(c.Number) {
				continue
			}
			n++
			fmt.Printf("%3d) %s  [%g]\n    %s\n", n, c.Ref.Label, c.Number, c.URL)
			if sel.Exclusive() {
				break
			}
		}
		fmt.Printf("\nDry-run: %d chapters selected.\n", n)
		return nil
	}

	pm := ui.NewProgressManager()
	stats := &ui.Stats{}
	start := time.Now()

	dl := downloader.New(downloader.Options{
		Client:          client,
		Output:          cfg.Output,
		Height:          cfg.Height,
		ContinueOnError: cfg.ContinueOnError,
		Logger:          logSvc,
		Progress:        pm,
		Stats:           stats,
	})

	runErr := dl.DownloadManga(ctx, cfg.DefaultURL, sel)
	pm.Close()

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Chapters: %d\n", stats.TotalChapters.Load())
	fmt.Printf("Pages:    %d\n", stats.TotalPages.Load())
	fmt.Printf("Data:     %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:     %s\n", time.Since(start).Round(time.Second))

	if runErr != nil {
		return runErr
	}

	fmt.Println("\nAll done.")
	return nil
}

// buildSelection turns the chapter/chapters flags into a Selection.
// When both are set the range takes precedence. Neither set means
// nothing to do, reported via ok=false rather than an error.
func buildSelection(chapter, chapterRange string) (downloader.Selection, bool, error) {
	if chapterRange != "" {
		min, max, err := parseRange(chapterRange)
		if err != nil {
			return nil, false, err
		}
		return downloader.ChapterRange{Min: min, Max: max}, true, nil
	}

	if chapter != "" {
		n, err := strconv.ParseFloat(chapter, 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid --chapter %q: %w", chapter, err)
		}
		return downloader.SingleChapter(n), true, nil
	}

	return nil, false, nil
}

func parseRange(s string) (float64, float64, error) {
	var min, max float64
	if _, err := fmt.Sscanf(s, "%f,%f", &min, &max); err != nil {
		return 0, 0, fmt.Errorf("invalid --chapters %q (want MIN,MAX): %w", s, err)
	}
	if min > max {
		return 0, 0, fmt.Errorf("invalid --chapters %q: min is greater than max", s)
	}
	return min, max, nil
}
