package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Driver names accepted by Open
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures a repository backend
type Options struct {
	Driver        string
	DSN           string
	MaxOpenConns  int32
	MaxIdleConns  int32
	MaxLifetime   time.Duration
	MigrationsDir string // overrides the embedded PostgreSQL migrations when set
}

// Open connects the configured backend and brings its schema up to date
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case DriverPostgres:
		repo, err := NewPostgresRepository(ctx, PostgresConfig{
			DSN:          opts.DSN,
			MaxOpenConns: opts.MaxOpenConns,
			MaxIdleConns: opts.MaxIdleConns,
			MaxLifetime:  opts.MaxLifetime,
		})
		if err != nil {
			return nil, err
		}

		var migrations fs.FS = PostgresMigrations()
		if opts.MigrationsDir != "" {
			migrations = os.DirFS(opts.MigrationsDir)
		}
		if err := RunMigrations(ctx, repo.Pool(), migrations); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repo, nil

	case DriverSQLite:
		return NewSQLiteRepository(ctx, opts.DSN)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}
