package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kylesnowschwartz/tail-runs/auth"
	"github.com/kylesnowschwartz/tail-runs/realtime"

	tea "charm.land/bubbletea/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/muesli/termenv"
)

const usage = `usage: tail-runs [--config path] [--dump] [--demo]
       tail-runs add --distance km --duration d [--date t] [--speed kmh]
       tail-runs signin (--uid id | --token id_token) [--email e]
       tail-runs signout`

// options are the global flags ahead of any subcommand.
type options struct {
	configPath string
	dump       bool
	demo       bool
	command    string
	args       []string
}

func parseArgs(args []string) (options, error) {
	var o options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--dump":
			o.dump = true
		case arg == "--demo":
			o.demo = true
		case arg == "--config":
			if i+1 >= len(args) {
				return o, fmt.Errorf("--config needs a path")
			}
			i++
			o.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			o.configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "-h" || arg == "--help":
			o.command = "help"
			return o, nil
		case strings.HasPrefix(arg, "-"):
			return o, fmt.Errorf("unknown flag: %s", arg)
		default:
			switch arg {
			case "add", "signin", "signout":
			default:
				return o, fmt.Errorf("unknown command: %s", arg)
			}
			o.command = arg
			o.args = args[i+1:]
			return o, nil
		}
	}
	return o, nil
}

// backends are the explicitly constructed collaborators the screen and the
// subcommands share.
type backends struct {
	db       realtime.Database
	provider auth.Provider
	store    *auth.SessionStore // nil in demo mode
	closers  []io.Closer
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i].Close()
	}
}

func openBackends(ctx context.Context, cfg Config, demo bool, logger *slog.Logger) (*backends, error) {
	if demo {
		db, provider, err := newDemoBackends(ctx, time.Now())
		if err != nil {
			return nil, err
		}
		return &backends{db: db, provider: provider, closers: []io.Closer{closerFunc(db.Close)}}, nil
	}

	b := &backends{}
	switch cfg.Backend {
	case BackendPostgres:
		pg, err := realtime.OpenPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		b.db = pg
		b.closers = append(b.closers, pg)
	default:
		fdb, err := realtime.OpenFile(cfg.DataFile, logger)
		if err != nil {
			return nil, err
		}
		b.db = fdb
	}

	var verifier *oidc.IDTokenVerifier
	if cfg.OIDC.Enabled() {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID)
		if err != nil {
			b.Close()
			return nil, err
		}
		verifier = v
	}
	b.store = auth.NewSessionStore(cfg.SessionFile, verifier, logger)
	b.provider = b.store
	return b, nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if opts.command == "help" {
		fmt.Fprintln(stdout, usage)
		return nil
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger, logCloser, err := openLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx := context.Background()
	b, err := openBackends(ctx, cfg, opts.demo, logger)
	if err != nil {
		logger.Error("opening backends", "err", err)
		return err
	}
	defer b.Close()

	switch opts.command {
	case "add":
		return runAdd(ctx, opts.args, b.db, b.provider, stdout, time.Now)
	case "signin", "signout":
		if b.store == nil {
			return fmt.Errorf("%s: not available in demo mode", opts.command)
		}
		if opts.command == "signin" {
			return runSignIn(opts.args, b.store, cfg.OIDC.Enabled(), stdout)
		}
		return runSignOut(b.store, stdout)
	}

	screen := newRunsScreen(b.db, b.provider, logger)
	hasDarkBg := termenv.HasDarkBackground()

	if opts.dump {
		return dump(screen, hasDarkBg, stdout)
	}

	m := initialModel(screen, hasDarkBg)
	p := tea.NewProgram(m)
	_, err = p.Run()
	screen.exit()
	return err
}

// dump renders one frame after the first snapshot (or immediately when
// signed out) and prints it without starting the TUI.
func dump(screen *runsScreen, hasDarkBg bool, out io.Writer) error {
	m := initialModel(screen, hasDarkBg)
	m.width = 120
	m.height = 0 // no viewport: render everything

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer m.screen.exit()
	m, err := drive(ctx, m, m.Init(), func(m model) bool { return m.screen.ready() })
	if err != nil {
		return fmt.Errorf("dump: waiting for runs: %w", err)
	}
	m.computeLineOffsets()
	fmt.Fprintln(out, m.render())
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
