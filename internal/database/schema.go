package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"amor/internal/config"
	"amor/internal/middleware"
	"amor/internal/models"

	"gorm.io/gorm"
)

// Schema modes selected with DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan says which of the two schema mechanisms a deployment runs.
// SQL migrations own the Postgres schema, including the random-roll
// function that AutoMigrate cannot express.
type schemaPlan struct {
	Mode    string
	SQL     bool
	Auto    bool
	Warning string
}

// SchemaStatus is what cmd/migrate status prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// PersistentModels are the tables AutoMigrate manages, parents first.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Group{},
		&models.Image{},
		&models.Notification{},
	}
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	// The embedded SQL is Postgres dialect.
	if Driver(cfg) == DriverSQLite {
		return schemaPlan{Mode: SchemaModeAuto, Auto: true}, nil
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return schemaPlan{Mode: mode, SQL: true}, nil
	case SchemaModeHybrid:
		return schemaPlan{Mode: mode, SQL: true, Auto: !prodLike}, nil
	case SchemaModeAuto:
		if !prodLike {
			return schemaPlan{Mode: mode, Auto: true}, nil
		}
		if !cfg.DBAutoMigrateAllowDestructive {
			return schemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return schemaPlan{
			Mode:    mode,
			Auto:    true,
			Warning: "AutoMigrate enabled in a production-like environment; the roll function will be missing",
		}, nil
	default:
		return schemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the database schema up to date for cfg.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if plan.Warning != "" {
		middleware.Logger.WarnContext(ctx, plan.Warning, slog.String("env", cfg.Env))
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.Auto {
		middleware.Logger.InfoContext(ctx, "running gorm automigrate", slog.String("mode", plan.Mode))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan for cfg and, when SQL migrations run,
// which are applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.SQL,
		WillRunAutoMigrate: plan.Auto,
	}
	if !plan.SQL {
		return status, nil
	}

	ms, err := Migrations()
	if err != nil {
		return nil, err
	}
	migrator := NewMigrator(db, ms)
	if status.AppliedVersions, err = migrator.Applied(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = migrator.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
