package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
)

const (
	readyTimeout = 30 * time.Second
	previewFiles = 6
)

// migrationFile is one "<version>_<name>.up.sql" file.
type migrationFile struct {
	Version uint64
	Name    string
}

// RunMigrations applies all up migrations from cfg.MigrationsDir, resolved against the working directory.
// A database left dirty by a failed run is reported and not touched.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	dsn := DSN(cfg)
	if err := WaitForPostgres(ctx, dsn, readyTimeout); err != nil {
		logger.Error(ctx, "db.migrate", "not_ready", slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := listMigrations(dir)
	logger.Debug(ctx, "db.migrate", "resolve", previewAttrs(dir, files)...)

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		logger.Error(ctx, "db.migrate", "init_failed", slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "close_failed", slog.Any("err", errors.Join(srcErr, dbErr)))
		}
	}()

	from, err := currentVersion(m)
	if err != nil {
		logger.Error(ctx, "db.migrate", "dirty", slog.String("err", err.Error()))
		return err
	}

	start := time.Now()
	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("took", logger.Took(start)),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to := from
	if upErr == nil {
		if to, err = currentVersion(m); err != nil {
			return err
		}
	}
	applied := appliedBetween(files, from, to)
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "applied", previewAttrs(dir, applied)...)
	}
	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.Duration("took", logger.Took(start)),
	)
	return nil
}

// currentVersion returns 0 for an empty schema and an error for a dirty one.
func currentVersion(m *migrate.Migrate) (uint64, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return 0, fmt.Errorf("schema version %d is dirty; repair it and force the version with the migrate CLI", v)
	}
	return uint64(v), nil
}

func listMigrations(dir string) []migrationFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, migrationFile{Version: v, Name: e.Name()})
	}
	slices.SortFunc(files, func(a, b migrationFile) int {
		return cmp.Or(cmp.Compare(a.Version, b.Version), strings.Compare(a.Name, b.Name))
	})
	return files
}

// appliedBetween returns the files with from < version <= to.
func appliedBetween(files []migrationFile, from, to uint64) []migrationFile {
	var out []migrationFile
	for _, f := range files {
		if f.Version > from && f.Version <= to {
			out = append(out, f)
		}
	}
	return out
}

func previewAttrs(dir string, files []migrationFile) []slog.Attr {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	preview, truncated := logger.SummarizeStrings(names, previewFiles)
	attrs := []slog.Attr{
		slog.String("path", dir),
		slog.Int("count", len(files)),
	}
	if preview != "" {
		attrs = append(attrs, slog.String("files", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("truncated", true))
	}
	return attrs
}
