package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/mealflow-backend/pkg/config"
	"github.com/angelmondragon/mealflow-backend/pkg/db"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/migrate"
)

const (
	cmdCreate   = "create"
	cmdValidate = "validate"
	cmdVersion  = "version"
)

type options struct {
	cmd     string
	dir     string
	name    string
	noTx    bool
	version string
}

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.cmd, "cmd", migrate.CommandUp, "up|down|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	fs.StringVar(&opts.name, "name", "", "migration name (create)")
	fs.BoolVar(&opts.noTx, "no-tx", false, "mark the new migration NO TRANSACTION (create)")
	fs.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS (version)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	switch opts.cmd {
	case cmdCreate:
		if opts.name == "" {
			return opts, errors.New("-name is required for create")
		}
	case cmdVersion:
		if opts.version == "" {
			return opts, errors.New("-version is required for version")
		}
	case cmdValidate, migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus:
	default:
		return opts, fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
	return opts, nil
}

// run handles the file-only commands before touching config, so create and
// validate work on a laptop without database credentials.
func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case cmdCreate:
		path, err := migrate.Create(migrate.CreateOptions{Dir: opts.dir, Name: opts.name, NoTransaction: opts.noTx})
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Fprintln(out, "created migration:", path)
		return nil
	case cmdValidate:
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		return errors.New("goose migrations target postgres; sqlite dev databases are built with MEALFLOW_AUTO_MIGRATE")
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": opts.dir})

	dbClient, err := db.New(ctx, cfg.DB, false, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		return err
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	if opts.cmd == cmdVersion {
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version, logg)
	}
	return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd, logg)
}
