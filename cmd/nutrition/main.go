// Command nutrition is the terminal client for the nutrition tracker: sign in,
// look up barcodes and keep the daily food log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nutritrack/nutrition-core/client"
	"github.com/nutritrack/nutrition-core/internal/cli"
	"github.com/nutritrack/nutrition-core/internal/config"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/kvstore"
	"github.com/nutritrack/nutrition-core/internal/ledger"
	"github.com/nutritrack/nutrition-core/internal/session"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

const usage = `Usage: nutrition [-config file] [-v] <command> [flags] [args]

Commands:
  login -email E -password P     sign in and remember the session
  logout                         sign out and forget the session
  register -email E -password P [-name N]
                                 create an account (does not sign in)
  whoami                         show the signed-in user
  scan <barcode>                 look up a barcode
  today [-date YYYY-MM-DD]       show the food log
  add [-date D] <barcode> <qty>  log qty servings of a barcode
  remove [-date D] <entryId>     delete a logged entry
  completion <bash|zsh|fish>     print a shell completion script
`

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nutrition", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "config file (default config/nutrition.yaml)")
	verbose := fs.Bool("v", false, "log at the configured level instead of warnings only")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	errOut := cli.NewPrinter(stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		errOut.Error(err.Error())
		return exitError
	}

	a, err := newApp(ctx, cfg, *verbose, stdout, stderr)
	if err != nil {
		errOut.Error(err.Error())
		return exitError
	}
	defer a.close()

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return exitUsage
		}
		errOut.Error(apierrors.UserMessage(err))
		return exitError
	}
	return exitOK
}

// app wires the session, client and ledger for one invocation.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	out     *cli.Printer
	stdout  io.Writer
	stderr  io.Writer
	store   kvstore.Store
	session *session.Manager
	ledger  *ledger.Coordinator
	now     func() time.Time
}

func newApp(ctx context.Context, cfg *config.Config, verbose bool, stdout, stderr io.Writer) (*app, error) {
	level := cfg.Log.Level
	if !verbose {
		level = quietLevel(level)
	}
	log := logger.New(logger.Config{
		Service: "nutrition",
		Level:   level,
		Format:  cfg.Log.Format,
		Output:  stderr,
	})

	store, err := kvstore.Open(ctx, cfg.KVStore())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	holder := session.NewHolder()
	api, err := client.New(client.Config{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Tokens:     holder,
		Logger:     log.Named("client"),
	})
	if err != nil {
		kvstore.Close(store)
		return nil, err
	}

	mgr, err := session.NewManager(session.Config{
		Remote:   api,
		Store:    store,
		Holder:   holder,
		TokenKey: cfg.Session.TokenKey,
		UserKey:  cfg.Session.UserKey,
		Logger:   log.Named("session"),
	})
	if err != nil {
		kvstore.Close(store)
		return nil, err
	}

	coord, err := ledger.New(ledger.Config{Remote: api, Logger: log.Named("ledger")})
	if err != nil {
		kvstore.Close(store)
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		out:     cli.NewPrinter(stdout),
		stdout:  stdout,
		stderr:  stderr,
		store:   store,
		session: mgr,
		ledger:  coord,
		now:     time.Now,
	}, nil
}

func (a *app) close() {
	if err := kvstore.Close(a.store); err != nil {
		a.log.WithError(err).Warn("Closing session store failed")
	}
}

// quietLevel raises level to warn so routine progress logs stay off the
// terminal.
func quietLevel(level string) string {
	parsed, err := logrus.ParseLevel(level)
	if err != nil || parsed > logrus.WarnLevel {
		return logrus.WarnLevel.String()
	}
	return level
}

// busy runs fn with a spinner on stderr.
func (a *app) busy(label string, fn func() error) error {
	s := cli.NewSpinner(a.stderr, label)
	s.Start()
	defer s.Stop()
	return fn()
}

// spin is busy for operations that cannot fail.
func (a *app) spin(label string, fn func()) {
	s := cli.NewSpinner(a.stderr, label)
	s.Start()
	defer s.Stop()
	fn()
}
