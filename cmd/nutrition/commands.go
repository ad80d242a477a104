package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nutritrack/nutrition-core/internal/cli"
	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
	"github.com/nutritrack/nutrition-core/internal/ledger"
)

var errNotLoggedIn = errors.New("not logged in; run `nutrition login` first")

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "whoami":
		return a.whoami(ctx, args)
	case "scan":
		return a.scan(ctx, args)
	case "today":
		return a.today(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "remove":
		return a.remove(ctx, args)
	case "completion":
		if len(args) != 1 {
			return errUsage
		}
		return cli.GenerateCompletion(a.stdout, args[0])
	case "help", "-h", "--help":
		return errUsage
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string, positional int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != positional {
		return errUsage
	}
	return nil
}

// user restores the persisted session and returns its user.
func (a *app) user(ctx context.Context) (account.User, error) {
	s := a.session.Restore(ctx)
	if s.IsEmpty() {
		return account.User{}, errNotLoggedIn
	}
	return *s.User, nil
}

// dateFlag adds -date with today as the default.
func (a *app) dateFlag(fs *flag.FlagSet) *string {
	return fs.String("date", ledger.Today(a.now()), "calendar date (YYYY-MM-DD)")
}

// =============================================================================
// Session Commands
// =============================================================================

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", a.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := a.parse(fs, args, 0); err != nil {
		return err
	}

	var user account.User
	err := a.busy("Signing in", func() error {
		s, err := a.session.Login(ctx, *email, *password)
		if err == nil {
			user = *s.User
		}
		return err
	})
	if err != nil {
		return err
	}

	a.out.Success(fmt.Sprintf("Welcome to %s, %s", a.cfg.App.Name, displayName(user)))
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	if err := a.parse(newFlagSet("logout", a.stderr), args, 0); err != nil {
		return err
	}

	a.session.Restore(ctx)
	a.spin("Signing out", func() {
		a.session.Logout(ctx)
	})

	a.out.Success("Logged out")
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register", a.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	if err := a.parse(fs, args, 0); err != nil {
		return err
	}

	var user account.User
	err := a.busy("Creating account", func() error {
		var err error
		user, err = a.session.Register(ctx, *email, *password, *name)
		return err
	})
	if err != nil {
		return err
	}

	a.out.Success(fmt.Sprintf("Account created for %s", user.Email))
	a.out.Info("Run `nutrition login` to sign in")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	if err := a.parse(newFlagSet("whoami", a.stderr), args, 0); err != nil {
		return err
	}
	user, err := a.user(ctx)
	if err != nil {
		return err
	}
	a.out.User(user)
	return nil
}

// =============================================================================
// Food Commands
// =============================================================================

func (a *app) scan(ctx context.Context, args []string) error {
	fs := newFlagSet("scan", a.stderr)
	if err := a.parse(fs, args, 1); err != nil {
		return err
	}

	// Signed-out users still get the generic record.
	a.session.Restore(ctx)

	var food nutrition.FoodInfo
	err := a.busy("Looking up", func() error {
		var err error
		food, err = a.ledger.ResolveFood(ctx, fs.Arg(0))
		return err
	})
	if err != nil {
		return err
	}
	a.out.Food(food)
	return nil
}

func (a *app) today(ctx context.Context, args []string) error {
	fs := newFlagSet("today", a.stderr)
	date := a.dateFlag(fs)
	if err := a.parse(fs, args, 0); err != nil {
		return err
	}
	user, err := a.user(ctx)
	if err != nil {
		return err
	}

	var l nutrition.DailyLedger
	a.spin("Loading", func() {
		l = a.ledger.LoadLedger(ctx, user.ID, *date)
	})
	a.out.Ledger(*date, l, a.cfg.App.CalorieGoal)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add", a.stderr)
	date := a.dateFlag(fs)
	if err := a.parse(fs, args, 2); err != nil {
		return err
	}
	quantity, err := ledger.ParseQuantity(fs.Arg(1))
	if err != nil {
		return err
	}
	user, err := a.user(ctx)
	if err != nil {
		return err
	}

	var (
		entry nutrition.FoodEntry
		l     nutrition.DailyLedger
	)
	err = a.busy("Saving", func() error {
		var err error
		entry, l, err = a.ledger.AddEntryAndReload(ctx, user.ID, fs.Arg(0), quantity, *date)
		return err
	})
	if err != nil {
		return err
	}

	a.out.Success(fmt.Sprintf("Added %s × %s (%s kcal)", fs.Arg(1), entry.FoodName, trimFloat(entry.Calories)))
	a.out.Ledger(*date, l, a.cfg.App.CalorieGoal)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := newFlagSet("remove", a.stderr)
	date := a.dateFlag(fs)
	if err := a.parse(fs, args, 1); err != nil {
		return err
	}
	user, err := a.user(ctx)
	if err != nil {
		return err
	}

	var l nutrition.DailyLedger
	err = a.busy("Removing", func() error {
		var err error
		l, err = a.ledger.RemoveEntryAndReload(ctx, user.ID, fs.Arg(0), *date)
		return err
	})
	if err != nil {
		return err
	}

	a.out.Success("Entry removed")
	a.out.Ledger(*date, l, a.cfg.App.CalorieGoal)
	return nil
}

func displayName(u account.User) string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
