package accounts

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations. dialect is a goose
// dialect name such as "sqlite3" or "pgx".
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(GetMigrationsFS())
	if err := goose.SetDialect(dialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unsupported migration dialect").
			WithMetadata(map[string]any{"dialect": dialect})
	}

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}
	return nil
}
