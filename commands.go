package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/kylesnowschwartz/tail-runs/auth"
	"github.com/kylesnowschwartz/tail-runs/realtime"
	"github.com/kylesnowschwartz/tail-runs/runs"
)

// recordDateLayout is how `add` writes dates: local, zone-less, the form the
// list parses as host-local time.
const recordDateLayout = "2006-01-02T15:04:05"

// runAdd pushes a run for the signed-in user.
func runAdd(ctx context.Context, args []string, db realtime.Database, provider auth.Provider, out io.Writer, now func() time.Time) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(out)
	distance := fs.Float64("distance", 0, "distance in km (required)")
	duration := fs.String("duration", "", "duration, e.g. 28:10 or 1:02:03 (required)")
	date := fs.String("date", "", "start time, e.g. 2024-03-05T08:07 (default now)")
	speed := fs.Float64("speed", 0, "average speed in km/h (default derived from distance and duration)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *distance <= 0 {
		return errors.New("add: --distance must be greater than zero")
	}
	if *duration == "" {
		return errors.New("add: --duration is required")
	}

	u := provider.CurrentUser()
	if u == nil {
		return fmt.Errorf("add: %w", auth.ErrNotSignedIn)
	}

	when := now().Format(recordDateLayout)
	if *date != "" {
		if _, ok := runs.ParseDate(*date, time.Local); !ok {
			return fmt.Errorf("add: unrecognized --date %q", *date)
		}
		when = *date
	}

	kmh := *speed
	if kmh <= 0 {
		derived, ok := runs.AverageSpeed(*distance, *duration)
		if !ok {
			return fmt.Errorf("add: cannot derive speed from duration %q; pass --speed", *duration)
		}
		kmh = derived
	}

	record := runs.Run{
		UserID:       u.UID,
		Date:         runs.Text(when),
		Distance:     runs.Number(*distance),
		Duration:     runs.Text(*duration),
		AverageSpeed: runs.Number(kmh),
	}
	key, err := db.Push(ctx, runsPath, record)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	fmt.Fprintf(out, "added run %s (%s km, %s, %s km/h)\n",
		key, record.Distance, record.Duration, record.AverageSpeed)
	return nil
}

// runSignIn writes a session. With OIDC configured an id_token is required.
func runSignIn(args []string, store *auth.SessionStore, oidcEnabled bool, out io.Writer) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	fs.SetOutput(out)
	uid := fs.String("uid", "", "user id")
	email := fs.String("email", "", "email shown in the header")
	token := fs.String("token", "", "OIDC id_token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if oidcEnabled && *token == "" {
		return errors.New("signin: --token is required when oidc is configured")
	}
	if *uid == "" && *token == "" {
		return errors.New("signin: pass --uid or --token")
	}

	if err := store.SignIn(auth.Session{UID: *uid, Email: *email, IDToken: *token}); err != nil {
		return fmt.Errorf("signin: %w", err)
	}
	u := store.CurrentUser()
	if u == nil {
		// Leave nothing behind that the screen would reject anyway.
		_ = store.SignOut()
		return fmt.Errorf("signin: %w", auth.ErrInvalidSession)
	}
	fmt.Fprintf(out, "signed in as %s\n", u.UID)
	return nil
}

// runSignOut removes the session.
func runSignOut(store *auth.SessionStore, out io.Writer) error {
	if err := store.SignOut(); err != nil {
		return fmt.Errorf("signout: %w", err)
	}
	fmt.Fprintln(out, "signed out")
	return nil
}
