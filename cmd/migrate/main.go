package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

type env struct {
	client *db.Client
	runner *migrate.Runner
	logg   *logger.Logger
}

type command struct {
	usage   string
	needsDB bool
	run     func(ctx context.Context, e env, opts options) ([]migrate.Step, error)
}

var commands = map[string]command{
	"create": {usage: "write a new empty migration (-name)", run: func(_ context.Context, _ env, opts options) ([]migrate.Step, error) {
		if opts.name == "" {
			return nil, errors.New("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return nil, err
		}
		fmt.Println("created migration:", path)
		return nil, nil
	}},
	"validate": {usage: "check filenames and goose annotations", run: func(_ context.Context, _ env, opts options) ([]migrate.Step, error) {
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return nil, err
		}
		fmt.Println("migration validation passed")
		return nil, nil
	}},
	"up": {usage: "apply all pending migrations", needsDB: true, run: func(ctx context.Context, e env, _ options) ([]migrate.Step, error) {
		return e.runner.Up(ctx)
	}},
	"down": {usage: "roll back the latest migration", needsDB: true, run: func(ctx context.Context, e env, _ options) ([]migrate.Step, error) {
		return e.runner.Down(ctx)
	}},
	"status": {usage: "list applied and pending migrations", needsDB: true, run: func(ctx context.Context, e env, _ options) ([]migrate.Step, error) {
		return e.runner.Status(ctx)
	}},
	"version": {usage: "migrate up or down to -version", needsDB: true, run: func(ctx context.Context, e env, opts options) ([]migrate.Step, error) {
		if opts.version == "" {
			return nil, errors.New("missing -version")
		}
		return e.runner.To(ctx, opts.version)
	}},
	"auto": {usage: "goose on postgres, gorm auto-migrate on sqlite", needsDB: true, run: func(ctx context.Context, e env, opts options) ([]migrate.Step, error) {
		return nil, migrate.Apply(ctx, e.client, opts.dir, e.logg)
	}},
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate -cmd <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-9s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(flag.CommandLine.Output(), "\nflags:")
	flag.PrintDefaults()
}

func main() {
	var opts options
	cmdName := flag.String("cmd", "up", "migration command")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Usage = usage
	flag.Parse()

	cmd, ok := commands[strings.ToLower(*cmdName)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q\n\n", *cmdName)
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	if err := run(*cmdName, cmd, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmdName, err)
		os.Exit(1)
	}
}

func run(name string, cmd command, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	e := env{logg: logg}

	if cmd.needsDB {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logg = logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": name, "dir": opts.dir})

		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer client.Close()

		sqlDB, err := client.DB().DB()
		if err != nil {
			return fmt.Errorf("sql database: %w", err)
		}
		runner, err := migrate.NewRunner(sqlDB, client.Driver(), opts.dir)
		if err != nil {
			return err
		}
		e = env{client: client, runner: runner, logg: logg}
	}

	steps, err := cmd.run(ctx, e, opts)
	for _, step := range steps {
		fmt.Println(step)
	}
	if err != nil {
		return err
	}
	if cmd.needsDB {
		logg.Info(logg.WithField(ctx, "steps", len(steps)), "migrate finished")
	}
	return nil
}
