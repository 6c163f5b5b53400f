package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
)

const DefaultDir = "pkg/migrate/migrations"

func Dialect(driver string) (goose.Dialect, error) {
	switch driver {
	case "", config.DBDriverPostgres:
		return goose.DialectPostgres, nil
	case config.DBDriverSQLite:
		return goose.DialectSQLite3, nil
	}
	return "", fmt.Errorf("unsupported db driver %q", driver)
}

// Step is one migration the runner touched or inspected.
type Step struct {
	Version   int64
	Path      string
	Direction string
	Duration  time.Duration
	AppliedAt time.Time
	Pending   bool
}

func (s Step) String() string {
	if s.Direction != "" {
		return fmt.Sprintf("%-4s %d %s (%s)", s.Direction, s.Version, s.Path, s.Duration.Round(time.Millisecond))
	}
	if s.Pending {
		return fmt.Sprintf("pending            %d %s", s.Version, s.Path)
	}
	return fmt.Sprintf("%s %d %s", s.AppliedAt.UTC().Format(time.DateTime), s.Version, s.Path)
}

// Runner wraps a goose provider bound to one directory and connection.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, driver, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	dialect, err := Dialect(driver)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Step, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return resultSteps(results), nil
}

// Down rolls back the most recent migration only.
func (r *Runner) Down(ctx context.Context) ([]Step, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return resultSteps([]*goose.MigrationResult{result}), nil
}

// To moves the schema up or down until target (YYYYMMDDHHMMSS) is the
// current version.
func (r *Runner) To(ctx context.Context, target string) ([]Step, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version < 0 {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	if err != nil {
		return nil, fmt.Errorf("goose migrate to %d: %w", version, err)
	}
	return resultSteps(results), nil
}

func (r *Runner) Status(ctx context.Context) ([]Step, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	steps := make([]Step, 0, len(statuses))
	for _, st := range statuses {
		steps = append(steps, Step{
			Version:   st.Source.Version,
			Path:      st.Source.Path,
			AppliedAt: st.AppliedAt,
			Pending:   st.State == goose.StatePending,
		})
	}
	return steps, nil
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

func resultSteps(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return steps
}
