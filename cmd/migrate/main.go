// Command migrate inspects and changes the amor database schema.
//
//	migrate status
//	migrate up
//	migrate auto
//	migrate down <version>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"amor/internal/config"
	"amor/internal/database"
	"amor/internal/middleware"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <status|up|auto|down> [version]")

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args(), os.Stdout); err != nil {
		middleware.Logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd := strings.ToLower(strings.TrimSpace(args[0]))

	var version int
	if cmd == "down" {
		if len(args) < 2 {
			return errUsage
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		version = v
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return execute(ctx, cmd, version, db, cfg, out)
}

func execute(ctx context.Context, cmd string, version int, db *gorm.DB, cfg *config.Config, out io.Writer) error {
	switch cmd {
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "mode=%s env=%s sql=%t auto=%t applied=%d pending=%d\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			fmt.Fprintf(out, "pending %s\n", m)
		}
	case "up":
		if !database.IsPostgres(db) {
			return errors.New("sql migrations need postgres; use auto for sqlite")
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(out, "sql migrations applied")
	case "auto":
		auto := *cfg
		auto.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, &auto); err != nil {
			return err
		}
		fmt.Fprintln(out, "automigrate applied")
	case "down":
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return err
		}
		fmt.Fprintf(out, "reverted %06d\n", version)
	default:
		return errUsage
	}
	return nil
}
