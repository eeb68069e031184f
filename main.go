package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/plotwise/chartcache/cache"
	"github.com/plotwise/chartcache/config"
	"github.com/plotwise/chartcache/core"
	"github.com/plotwise/chartcache/kv"
)

func main() {
	configFlag := flag.String("config", "", "Optional YAML config file")
	statsFlag := flag.Bool("stats", false, "Print cache storage statistics and exit")
	listFlag := flag.Bool("list", false, "List cached file names and exit")
	clearFlag := flag.Bool("clear", false, "Remove all cached files and exit")
	sweepFlag := flag.Bool("sweep", false, "Remove corrupt cached records and exit")
	removeFlag := flag.String("remove", "", "Remove a single cached file and exit")
	fileFlag := flag.String("file", "", "Cached file name to read")
	searchFlag := flag.String("search", "", "Search term to match against the file's rows")
	columnsFlag := flag.String("columns", "", "Comma-separated column subset")
	pageFlag := flag.Int("page", -1, "0-indexed page to read")
	sizeFlag := flag.Int("size", 100, "Page size for -page")
	limitFlag := flag.Int("limit", 50, "Maximum search rows to print")
	fetchFlag := flag.Bool("fetch", false, "Fetch chart data through the coordinator")
	fileIDFlag := flag.String("file-id", "", "Backend file ID for -fetch")
	chartFlag := flag.String("chart", "line", "Chart type for -fetch sampling policy")
	flag.Parse()

	if err := config.InitConfig(*configFlag); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx := core.WithDefaultLogger(context.Background(), "cli")

	store, err := openStore()
	if err != nil {
		core.Errorf(ctx, "Failed to open cache store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	repo := cache.NewRepository(store, cache.EligibilityPolicy{
		MinBytes: config.Config.MinCacheBytes,
		MaxBytes: config.Config.MaxCacheBytes,
	})
	dal := cache.NewDataAccess(repo)

	switch {
	case *statsFlag:
		info, err := repo.StorageInfo(ctx)
		exitOnError(ctx, err)
		printJSON(info)

	case *listFlag:
		names, err := repo.ListFileNames(ctx)
		exitOnError(ctx, err)
		printJSON(names)

	case *clearFlag:
		exitOnError(ctx, repo.Clear(ctx))
		core.Infof(ctx, "cache cleared")

	case *sweepFlag:
		removed, err := repo.SweepCorrupt(ctx)
		exitOnError(ctx, err)
		printJSON(removed)

	case *removeFlag != "":
		exitOnError(ctx, repo.Remove(ctx, *removeFlag))
		core.Infof(ctx, "removed %s", *removeFlag)

	case *searchFlag != "":
		requireFile(*fileFlag)
		rows, err := dal.Search(ctx, *fileFlag, *searchFlag, splitColumns(*columnsFlag))
		exitOnError(ctx, err)
		// The search itself is uncapped; trimming for display is the
		// caller's job.
		if len(rows) > *limitFlag {
			rows = rows[:*limitFlag]
		}
		printJSON(rows)

	case *pageFlag >= 0:
		requireFile(*fileFlag)
		page, err := dal.Paginated(ctx, *fileFlag, *pageFlag, *sizeFlag)
		exitOnError(ctx, err)
		printJSON(page)

	case *fetchFlag:
		requireFile(*fileFlag)
		coordinator := cache.NewCoordinator(repo, config.Config.BackendURL, config.Config.RequestTimeout)
		resp, err := coordinator.FetchChartData(ctx, *fileIDFlag, splitColumns(*columnsFlag), *fileFlag, *chartFlag)
		exitOnError(ctx, err)
		printJSON(resp)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func openStore() (kv.Store, error) {
	if config.Config.StoreBackend == "file" {
		return kv.NewFileStore(afero.NewOsFs(), config.Config.CacheDir, config.Config.MaxStoreBytes)
	}
	if err := os.MkdirAll(config.Config.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return kv.Open(filepath.Join(config.Config.CacheDir, "files.db"))
}

func splitColumns(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	columns := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	return columns
}

func requireFile(fileName string) {
	if fileName == "" {
		log.Fatalf("-file is required for this operation")
	}
}

func exitOnError(ctx context.Context, err error) {
	if err != nil {
		core.Errorf(ctx, "%v", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}
	fmt.Println(string(jsonData))
}
