// Package migrate applies the goose SQL migrations that define settlement
// storage. Migrations are embedded in the binary; a directory on disk can be
// substituted for local development.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written and where the embedded set lives in the repo.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrate: embedded migrations missing: %v", err))
	}
	return sub
}

// Source resolves dir to a filesystem. Empty or DefaultDir selects the embedded set.
func Source(dir string) fs.FS {
	if dir == "" || dir == DefaultDir {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Result is one applied or rolled back migration.
type Result struct {
	Version   int64
	Path      string
	Direction string
	Duration  string
}

// Runner executes goose commands against one database.
type Runner struct {
	provider *goose.Provider
}

// NewRunner binds db to the migrations in fsys. Settlement storage is Postgres only.
func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Run executes up, down, redo, or status. Status returns one Result per
// known migration with Direction set to its state.
func (r *Runner) Run(ctx context.Context, command string) ([]Result, error) {
	switch command {
	case "up":
		res, err := r.provider.Up(ctx)
		return toResults(res), wrap("up", err)
	case "down":
		res, err := r.provider.Down(ctx)
		return toResults([]*goose.MigrationResult{res}), wrap("down", err)
	case "redo":
		down, err := r.provider.Down(ctx)
		if err != nil {
			return toResults([]*goose.MigrationResult{down}), wrap("redo down", err)
		}
		up, err := r.provider.UpByOne(ctx)
		return toResults([]*goose.MigrationResult{down, up}), wrap("redo up", err)
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return nil, wrap("status", err)
		}
		out := make([]Result, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, Result{Version: st.Source.Version, Path: st.Source.Path, Direction: string(st.State)})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown migrate command %q", command)
	}
}

// MigrateTo moves the schema up or down to version (YYYYMMDDHHMMSS).
func (r *Runner) MigrateTo(ctx context.Context, version string) ([]Result, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("get db version", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		res, err := r.provider.UpTo(ctx, target)
		return toResults(res), wrap(fmt.Sprintf("up-to %d", target), err)
	default:
		res, err := r.provider.DownTo(ctx, target)
		return toResults(res), wrap(fmt.Sprintf("down-to %d", target), err)
	}
}

// Pending reports whether migrations remain unapplied.
func (r *Runner) Pending(ctx context.Context) (bool, error) {
	pending, err := r.provider.HasPending(ctx)
	return pending, wrap("check pending", err)
}

func toResults(in []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, res := range in {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration.String(),
		})
	}
	return out
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
