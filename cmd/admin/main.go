// Command admin manages moderator roles.
//
//	admin promote <user_id>
//	admin demote <user_id>
//	admin list-admins
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
	"amor/internal/models"
	"amor/internal/repository"
)

var errUsage = errors.New("usage: admin <promote|demote|list-admins> [user_id]")

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args(), os.Stdout); err != nil {
		middleware.Logger.Error("admin command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return execute(ctx, args, repository.NewUserRepository(db), out)
}

func execute(ctx context.Context, args []string, users repository.UserRepository, out io.Writer) error {
	switch cmd := strings.ToLower(strings.TrimSpace(args[0])); cmd {
	case "promote", "demote":
		if len(args) < 2 {
			return errUsage
		}
		role := models.RoleAdmin
		if cmd == "demote" {
			role = models.RoleUser
		}
		return setRole(ctx, users, args[1], role, out)
	case "list-admins":
		return listAdmins(ctx, users, out)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, rawID string, role models.Role, out io.Writer) error {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid user id %q", rawID)
	}

	user, err := users.GetByID(ctx, uint(id))
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return fmt.Errorf("user %d not found", id)
		}
		return err
	}
	if user.Role == role {
		_, _ = fmt.Fprintf(out, "%s (id %d) is already %s\n", user.Name, user.ID, role)
		return nil
	}

	if err := users.SetRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	middleware.Logger.Info("role changed", "user_id", user.ID, "role", role)
	_, _ = fmt.Fprintf(out, "%s (id %d) is now %s\n", user.Name, user.ID, role)
	return nil
}

func listAdmins(ctx context.Context, users repository.UserRepository, out io.Writer) error {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		_, _ = fmt.Fprintln(out, "no admins")
		return nil
	}
	for _, a := range admins {
		_, _ = fmt.Fprintf(out, "%d\t%s\t%s\n", a.ID, a.Name, a.Email)
	}
	return nil
}
