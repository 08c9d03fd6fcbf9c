package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
	"github/itish2003/notehub/services"
	"github/itish2003/notehub/tui"
)

var (
	browseSearch  string
	browsePage    int
	browseTag     string
	browseNoCache bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and create notes in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse(cmd.Context())
	},
}

func init() {
	browseCmd.Flags().StringVarP(&browseSearch, "search", "s", "", "initial search text")
	browseCmd.Flags().IntVarP(&browsePage, "page", "p", 1, "initial page")
	browseCmd.Flags().StringVarP(&browseTag, "tag", "t", "", "tag filter (Todo, Work, Personal, Meeting, Shopping or All)")
	browseCmd.Flags().BoolVar(&browseNoCache, "no-cache", false, "do not read or write the on-disk query cache")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateTagFlag(browseTag); err != nil {
		return err
	}

	// The terminal belongs to the program; records go to its status line.
	handler := tui.NewLogHandler(max(cfg.SlogLevel(), slog.LevelWarn))
	logger := slog.New(handler)

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	api := services.NewNotesAPI(httpClient, cfg.APIURL, cfg.APIToken, cfg.PerPage, logger)
	cache := querycache.New(querycache.WithLogger(logger), querycache.WithStaleTime(cfg.StaleTime))

	var persister *querycache.BoltPersister
	if !browseNoCache {
		p, err := openPersister()
		if err != nil {
			return err
		}
		if p != nil {
			persister = p
			defer persister.Close()

			snap, err := persister.Load()
			if err != nil {
				slog.Warn("could not read query cache", "error", err)
			} else {
				slog.Debug("hydrated query cache", "entries", cache.Hydrate(snap))
			}
		}
	}

	model := tui.NewModel(ctx, api, cache, tui.Options{
		Search:        browseSearch,
		Page:          browsePage,
		Tag:           browseTag,
		Debounce:      cfg.Debounce,
		ToastDuration: cfg.ToastDuration,
		Logger:        logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.SetProgram(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run notes browser: %w", err)
	}

	if persister == nil {
		return nil
	}
	snap, err := cache.Dehydrate()
	if err != nil {
		return fmt.Errorf("dehydrate query cache: %w", err)
	}
	if err := persister.Save(snap); err != nil {
		return fmt.Errorf("save query cache: %w", err)
	}
	return nil
}

func validateTagFlag(tag string) error {
	filter := services.NormalizeTag(tag)
	if filter == "" || models.Tag(filter).Valid() {
		return nil
	}
	return fmt.Errorf("unknown tag %q (want one of %s or %s)", tag, tagNames(), models.TagFilterAll)
}

func tagNames() string {
	names := make([]string, 0, len(models.Tags()))
	for _, t := range models.Tags() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// openPersister opens the query cache at cache_path, or under the user
// cache directory when it is unset. It returns nil when there is no
// usable location.
func openPersister() (*querycache.BoltPersister, error) {
	path := cfg.CachePath
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			slog.Warn("no user cache directory, query cache disabled", "error", err)
			return nil, nil
		}
		path = filepath.Join(dir, "notehub", "queries.db")
	}
	return querycache.OpenBoltPersister(path, cfg.CacheMaxAge)
}
