// Command review is a terminal client for rolling groups and working the
// admin moderation queue.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"amor/internal/apiclient"
	"amor/internal/models"
	"amor/internal/moderation"
	"amor/internal/roll"
	"amor/internal/settings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "review:", err)
		os.Exit(1)
	}
}

func run() error {
	serverURL := flag.String("server", "http://localhost:8375", "Amor API base URL")
	email := flag.String("email", os.Getenv("AMOR_EMAIL"), "Login email (admin for the queue)")
	password := flag.String("password", os.Getenv("AMOR_PASSWORD"), "Login password")
	settingsPath := flag.String("settings", defaultSettingsPath(), "Settings file (.json)")
	listen := flag.Bool("listen", true, "Print realtime notifications while running")
	flag.Parse()

	mode := "roll"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prefs, err := settings.Open(*settingsPath)
	if err != nil {
		if prefs == nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "settings reset to defaults:", err)
	}

	client := apiclient.New(*serverURL)
	if *email != "" {
		session, err := client.Login(ctx, *email, *password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Printf("signed in as %s (%s)\n", session.Name, session.Role)
		if *listen {
			go func() {
				_ = client.Listen(ctx, printEvent)
			}()
		}
	}

	in := bufio.NewScanner(os.Stdin)
	switch mode {
	case "roll":
		return rollLoop(ctx, client, prefs, in, os.Stdout)
	case "queue":
		return queueLoop(ctx, moderation.NewQueue(client, nil), in, os.Stdout)
	default:
		return fmt.Errorf("unknown mode %q (want roll or queue)", mode)
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "amor-settings.json"
	}
	return filepath.Join(dir, "amor", "settings.json")
}

func printEvent(ev apiclient.Event) {
	if ev.Type != "notification" {
		return
	}
	note, err := apiclient.DecodePayload[models.Notification](ev)
	if err != nil {
		return
	}
	fmt.Printf("\n[notification] %s\n", note.Message)
}

func rollLoop(ctx context.Context, client *apiclient.Client, prefs *settings.Store, in *bufio.Scanner, out io.Writer) error {
	r := roll.New(client, prefs)
	if _, err := r.Roll(ctx); err != nil {
		fmt.Fprintln(out, "oops! we couldn't find a group:", err)
	}

	for {
		printGroup(out, r.Current())
		fmt.Fprintf(out, "[enter] roll  [i] include unapproved (%v)  [q] quit > ", prefs.Get().IncludeUnapproved)
		if !in.Scan() {
			return in.Err()
		}
		switch strings.TrimSpace(in.Text()) {
		case "q":
			return nil
		case "i":
			if err := prefs.SetIncludeUnapproved(!prefs.Get().IncludeUnapproved); err != nil {
				fmt.Fprintln(out, "could not save settings:", err)
			}
			continue
		}
		if _, err := r.Roll(ctx); err != nil {
			if errors.Is(err, roll.ErrSuperseded) {
				continue
			}
			fmt.Fprintln(out, "oops! we couldn't find a group:", err)
		}
	}
}

func queueLoop(ctx context.Context, q *moderation.Queue, in *bufio.Scanner, out io.Writer) error {
	if err := q.Refetch(ctx); err != nil {
		fmt.Fprintln(out, "failed to fetch unapproved groups:", err)
	}

	for {
		top, ok := q.Top()
		if ok {
			printGroup(out, &top)
			fmt.Fprint(out, "[a] approve  [d] deny  [r] refresh  [f] failures  [u id] undo  [q] quit > ")
		} else {
			fmt.Fprintln(out, "woohoo! no more groups to verify")
			fmt.Fprint(out, "[r] refresh  [f] failures  [u id] undo  [q] quit > ")
		}
		if !in.Scan() {
			return in.Err()
		}

		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "q":
			return nil
		case "a", "d":
			if !ok {
				continue
			}
			d, verb := moderation.Approve, "approved"
			if fields[0] == "d" {
				d, verb = moderation.Deny, "denied"
			}
			if err := q.Decide(ctx, top.ID, d); err != nil {
				fmt.Fprintln(out, "decision failed:", err)
			} else {
				fmt.Fprintf(out, "successfully %s the group: %s\n", verb, top.Name)
			}
		case "r":
			if err := q.Refetch(ctx); err != nil {
				fmt.Fprintln(out, "failed to fetch unapproved groups:", err)
			}
		case "f":
			for _, f := range q.Failures() {
				fmt.Fprintf(out, "  #%d %s (%s): %v\n", f.Group.ID, f.Group.Name, f.Decision, f.Err)
			}
		case "u":
			if len(fields) < 2 {
				continue
			}
			id, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil || !q.Restore(uint(id)) {
				fmt.Fprintln(out, "nothing to restore for", fields[1])
			}
		}
	}
}

func printGroup(out io.Writer, g *models.GroupView) {
	if g == nil {
		return
	}
	fmt.Fprintf(out, "\n#%d %s", g.ID, g.Name)
	if len(g.Tags) > 0 {
		fmt.Fprintf(out, "  [%s]", strings.Join(g.Tags, ", "))
	}
	fmt.Fprintln(out)
	for _, img := range g.Images {
		fmt.Fprintln(out, "  ", img.URL)
	}
}
