// Command seed fills a development database with users and image groups.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"amor/internal/config"
	"amor/internal/database"
	"amor/internal/middleware"
	"amor/internal/seed"
)

type flags struct {
	users, groups int
	approvedRatio float64
	clean, fast   bool
	randSeed      int64
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.IntVar(&f.users, "users", 20, "users to create")
	fs.IntVar(&f.groups, "groups", 60, "groups to create")
	fs.Float64Var(&f.approvedRatio, "approved-ratio", 0.75, "share of groups that start approved")
	fs.BoolVar(&f.clean, "clean", true, "delete existing users, groups and notifications first")
	fs.BoolVar(&f.fast, "fast", false, "reuse one precomputed password hash")
	fs.Int64Var(&f.randSeed, "rand-seed", 0, "random seed, 0 uses the clock")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	switch {
	case f.users < 1:
		return f, errors.New("-users must be at least 1")
	case f.groups < 0:
		return f, errors.New("-groups must not be negative")
	case f.approvedRatio < 0 || f.approvedRatio > 1:
		return f, errors.New("-approved-ratio must be between 0 and 1")
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(f, os.Stdout); err != nil {
		middleware.Logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(f flags, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return errors.New("refusing to seed a production database")
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:      f.users,
		NumGroups:     f.groups,
		ApprovedRatio: f.approvedRatio,
		SkipBcrypt:    f.fast,
		RandSeed:      f.randSeed,
	})
	if f.clean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	sum, err := s.Run()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d users and %d groups (%d approved)\n", sum.Users, sum.Groups, sum.Approved)
	fmt.Fprintf(out, "every seeded user signs in with %q\n", seed.DemoPassword)
	return nil
}
