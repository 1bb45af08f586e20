package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/internal/bootstrap"
	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/jrsteele09/go-hr-session/internal/utils"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/tokencodec"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
)

const passwordEnvVar = "HRAUTH_PASSWORD"

type env struct {
	app *bootstrap.App
	nav *navigation.History
	log zerolog.Logger
	out io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":    {"sign in and persist the session", loginCmd},
	"register": {"create an account and sign in", registerCmd},
	"logout":   {"revoke the refresh token and clear the session", logoutCmd},
	"status":   {"restore the stored session and describe it", statusCmd},
	"whoami":   {"fetch the signed-in user's profile", whoamiCmd},
	"profile":  {"update the signed-in user's profile", profileCmd},
	"get":      {"GET an API route with the session's credentials", getCmd},
	"open":     {"run the route guards for a portal URL", openCmd},
	"token":    {"print a valid access token, refreshing if needed", tokenCmd},
	"watch":    {"keep the session fresh until interrupted", watchCmd},
	"config":   {"print the effective configuration", configCmd},
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: hrauth <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", name, commands[name].summary)
	}
}

func password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(passwordEnvVar); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("password required: pass -password or set %s", passwordEnvVar)
}

func loginCmd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "account username")
	pw := fs.String("password", "", "account password (default $"+passwordEnvVar+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret, err := password(*pw)
	if err != nil {
		return err
	}

	profile, err := e.app.Session.Login(ctx, backend.Credentials{Username: *username, Password: secret})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "signed in as %s (%s)\n", profile.DisplayName(), profile.Role)
	return nil
}

func registerCmd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	reg := backend.Registration{}
	fs.StringVar(&reg.Username, "username", "", "account username")
	fs.StringVar(&reg.Email, "email", "", "email address")
	fs.StringVar(&reg.FirstName, "first-name", "", "first name")
	fs.StringVar(&reg.LastName, "last-name", "", "last name")
	role := fs.String("role", "", "requested role")
	pw := fs.String("password", "", "account password (default $"+passwordEnvVar+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret, err := password(*pw)
	if err != nil {
		return err
	}
	reg.Password, reg.PasswordConfirm = secret, secret
	if *role != "" {
		parsed, err := users.ParseRole(*role)
		if err != nil {
			return err
		}
		reg.Role = parsed
	}

	profile, err := e.app.Session.Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "registered and signed in as %s\n", profile.Username)
	return nil
}

func logoutCmd(ctx context.Context, e *env, _ []string) error {
	e.app.Session.SignOut(ctx)
	fmt.Fprintln(e.out, "signed out")
	return nil
}

func statusCmd(ctx context.Context, e *env, _ []string) error {
	svc := e.app.Session
	if !svc.Resume(ctx).Authenticated {
		fmt.Fprintln(e.out, "not signed in")
		return nil
	}

	user := svc.CurrentUser()
	fmt.Fprintf(e.out, "signed in:     %t\n", svc.IsAuthenticated())
	if user != nil {
		fmt.Fprintf(e.out, "user:          %s (%s)\n", user.DisplayName(), user.Role)
		if last := utils.Value(user.LastLogin); last != "" {
			fmt.Fprintf(e.out, "last login:    %s\n", last)
		}
	}

	access := svc.AccessToken(ctx)
	codec := tokencodec.Codec{Buffer: e.app.Config.GetExpiryBuffer(), Now: time.Now}
	if exp, err := codec.Expiry(access); err == nil {
		fmt.Fprintf(e.out, "access token:  %s, expires %s (in %s)\n",
			logging.Redact(access), exp.Format(time.RFC3339), codec.Remaining(access).Round(time.Second))
	} else {
		fmt.Fprintln(e.out, "access token:  none")
	}
	fmt.Fprintf(e.out, "refresh token: %t\n", svc.RefreshToken(ctx) != "")
	return nil
}

func whoamiCmd(ctx context.Context, e *env, _ []string) error {
	e.app.Session.Resume(ctx)
	profile, err := e.app.Client.Me(ctx)
	if err != nil {
		return err
	}
	return printJSON(e.out, profile)
}

func profileCmd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	var first, last, email, bio, phone string
	fs.StringVar(&first, "first-name", "", "first name")
	fs.StringVar(&last, "last-name", "", "last name")
	fs.StringVar(&email, "email", "", "email address")
	fs.StringVar(&bio, "bio", "", "short biography")
	fs.StringVar(&phone, "phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	update := users.Update{}
	fs.Visit(func(f *flag.Flag) {
		value := utils.Ptr(f.Value.String())
		switch f.Name {
		case "first-name":
			update.FirstName = value
		case "last-name":
			update.LastName = value
		case "email":
			update.Email = value
		case "bio":
			update.Bio = value
		case "phone":
			update.Phone = value
		}
	})

	e.app.Session.Resume(ctx)
	profile, err := e.app.Client.UpdateMe(ctx, update)
	if err != nil {
		return err
	}
	return printJSON(e.out, profile)
}

func getCmd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: hrauth get <route>")
	}
	e.app.Session.Resume(ctx)

	var body json.RawMessage
	if err := e.app.Client.Get(ctx, args[0], &body); err != nil {
		return err
	}
	return printJSON(e.out, body)
}

func openCmd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: hrauth open <url>")
	}
	e.app.Session.Resume(ctx)

	decision := e.app.Client.Navigate(ctx, args[0])
	if decision.Allow {
		fmt.Fprintf(e.out, "allowed: %s (%s)\n", args[0], decision.Reason)
		return nil
	}
	fmt.Fprintf(e.out, "redirected to %s (%s)\n", decision.Redirect, decision.Reason)
	e.log.Debug().Strs("history", e.nav.Visited()).Msg("navigation")
	return nil
}

func tokenCmd(ctx context.Context, e *env, _ []string) error {
	e.app.Session.Resume(ctx)
	token, err := e.app.Session.TokenSource(ctx).Token()
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, token.AccessToken)
	return nil
}

func watchCmd(ctx context.Context, e *env, _ []string) error {
	displayAppname(e.app.Config.GetAppName())

	svc := e.app.Session
	if !svc.Resume(ctx).Authenticated {
		return errors.New("not signed in")
	}
	unsubscribe := svc.Authenticated().Subscribe(func(authenticated bool) {
		if !authenticated {
			e.log.Warn().Msg("session ended")
		}
	})
	defer unsubscribe()

	schedule := e.app.Config.GetKeepaliveSchedule()
	if schedule == "" {
		return errors.New("keepalive is disabled (timing.keepalive: off)")
	}
	if err := e.app.Keepalive.Start(ctx); err != nil {
		return err
	}
	e.log.Info().Str("schedule", schedule).Msg("watching session, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

func configCmd(_ context.Context, e *env, _ []string) error {
	out, err := config.Dump(e.app.Config)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(e.out, strings.TrimRight(string(out), "\n")+"\n")
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
