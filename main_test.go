package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
	}{
		{"none", nil, options{}},
		{"dump demo", []string{"--dump", "--demo"}, options{dump: true, demo: true}},
		{"config", []string{"--config", "/tmp/c.yaml"}, options{configPath: "/tmp/c.yaml"}},
		{"config equals", []string{"--config=/tmp/c.yaml"}, options{configPath: "/tmp/c.yaml"}},
		{"help", []string{"-h", "--bogus"}, options{command: "help"}},
		{"add with args", []string{"--demo", "add", "--distance", "5"},
			options{demo: true, command: "add", args: []string{"--distance", "5"}}},
		{"signout", []string{"signout"}, options{command: "signout", args: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if err != nil {
				t.Fatalf("parseArgs: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseArgs = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"--config"},
		{"--verbose"},
		{"delete"},
	} {
		if _, err := parseArgs(args); err == nil {
			t.Errorf("parseArgs(%q) should fail", args)
		}
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--help"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "usage: tail-runs") {
		t.Errorf("help = %q", out.String())
	}
}

func TestRun_UnknownCommandShowsUsage(t *testing.T) {
	err := run([]string{"delete"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Errorf("err = %v, want usage", err)
	}
}

func TestDump_DemoShowsOnlyDemoUsersRuns(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	db, provider, err := newDemoBackends(t.Context(), now)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	screen := newRunsScreen(db, provider, nil)
	var out bytes.Buffer
	if err := dump(screen, true, &out); err != nil {
		t.Fatalf("dump: %v", err)
	}

	v := plain(out.String())
	if !strings.Contains(v, "4 runs") {
		t.Errorf("dump missing totals:\n%s", v)
	}
	if !strings.Contains(v, "Date: 04.03.2024 07:05") {
		t.Errorf("dump missing oldest run:\n%s", v)
	}
	if strings.Contains(v, "21.1") {
		t.Errorf("dump leaked another user's run:\n%s", v)
	}
	if db.Subscribers() != 0 || provider.Listeners() != 0 {
		t.Error("dump should release the screen's resources")
	}
}

func TestRun_FileBackendEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.json", fmt.Sprintf(
		`{"data_file": %q, "session_file": %q, "log_file": %q, "log_level": "debug"}`,
		filepath.Join(dir, "db.json"), filepath.Join(dir, "session.json"), filepath.Join(dir, "tail-runs.log")))

	var out bytes.Buffer
	cfg := []string{"--config", cfgPath}

	if err := run(append(cfg, "--dump"), &out); err != nil {
		t.Fatalf("dump signed out: %v", err)
	}
	if !strings.Contains(plain(out.String()), msgSignedOut) {
		t.Errorf("signed-out dump:\n%s", out.String())
	}

	if err := run(append(cfg, "add", "--distance", "5", "--duration", "30:00"), &out); err == nil {
		t.Error("add while signed out should fail")
	}
	if err := run(append(cfg, "signin", "--uid", "alice"), &out); err != nil {
		t.Fatalf("signin: %v", err)
	}
	if err := run(append(cfg, "add", "--distance", "5", "--duration", "30:00", "--date", "2024-03-05T08:07:00"), &out); err != nil {
		t.Fatalf("add: %v", err)
	}

	out.Reset()
	if err := run(append(cfg, "--dump"), &out); err != nil {
		t.Fatalf("dump: %v", err)
	}
	v := plain(out.String())
	for _, want := range []string{"alice", "Date: 05.03.2024 08:07", "Distance: 5 km", "Average Speed: 10 Km/h", "1 run"} {
		if !strings.Contains(v, want) {
			t.Errorf("dump missing %q:\n%s", want, v)
		}
	}

	if err := run(append(cfg, "signout"), &out); err != nil {
		t.Fatalf("signout: %v", err)
	}
}

func TestRun_DemoRejectsSessionCommands(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	if err := run([]string{"--demo", "signout"}, &bytes.Buffer{}); err == nil {
		t.Error("signout in demo mode should fail")
	}
}
