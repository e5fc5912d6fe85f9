package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/tastetrack/internal/menuimport"
	"github.com/xenking/tastetrack/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing menu CSV files")
	flag.StringVar(&pattern, "pattern", "*.csv.gz", "glob matched against file names in data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL); err != nil {
		slog.Error("menu ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu ingest completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "match input files")
	}
	if len(files) == 0 {
		slog.Info("no input files found", slog.String("dir", dataDir), slog.String("pattern", pattern))
		return nil
	}

	slog.Info("parsing menu files", slog.Int("files", len(files)))

	results, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	w := menuimport.NewWriter(
		postgres.NewRestaurantRepository(pool),
		postgres.NewMenuRepository(pool),
		bloomCapacity, bloomFPR,
	)

	restaurants, existing, err := w.Preload(ctx)
	if err != nil {
		return errors.Wrap(err, "preload existing menu items")
	}
	slog.Info("existing menu items loaded",
		slog.Int("restaurants", restaurants),
		slog.Int("items", existing),
	)

	for i, r := range results {
		if err := w.Write(ctx, r.Items); err != nil {
			return errors.Wrapf(err, "write menu items of %s", filepath.Base(files[i]))
		}
		slog.Info("write progress", slog.Int("inserted", w.Stats().Inserted))
	}

	st := w.Stats()
	slog.Info("ingest summary",
		slog.Int("inserted", st.Inserted),
		slog.Int("duplicates", st.Duplicates),
		slog.Int("unknown_restaurant", st.Orphans),
	)

	return nil
}

// parseFiles reads every file concurrently. Result order follows the input
// order so that repeated runs insert in the same sequence.
func parseFiles(ctx context.Context, files []string) ([]menuimport.Result, error) {
	results := make([]menuimport.Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			r, err := parseFile(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", filepath.Base(f))
			}
			slog.Info("file parsed",
				slog.String("file", filepath.Base(f)),
				slog.Int("items", len(r.Items)),
				slog.Int("skipped", len(r.Skipped)),
			)
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func parseFile(ctx context.Context, path string) (menuimport.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return menuimport.Result{}, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return menuimport.Result{}, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	res, err := menuimport.Parse(ctx, src)
	if err != nil {
		return res, err
	}
	for _, skip := range res.Skipped {
		slog.Warn("skipping malformed row",
			slog.String("file", filepath.Base(path)),
			slog.Int("line", skip.Line),
			slog.String("error", skip.Err.Error()),
		)
	}
	return res, nil
}
