package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-hr-session/internal/bootstrap"
	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/jrsteele09/go-hr-session/internal/observability"
	"github.com/jrsteele09/go-hr-session/navigation"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hrauth: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️  .env could not be read: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.GetEnv(), cfg.GetLogLevel())

	if err := observability.InitSentry(cfg.GetSentryDSN(), cfg.GetEnv()); err != nil {
		logger.Warn().Err(err).Msg("sentry disabled")
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nav := navigation.NewHistory(navigation.PathDashboard)
	app, err := bootstrap.New(ctx, cfg, nav, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn().Err(err).Msg("token store close failed")
		}
	}()

	return cmd.run(ctx, &env{app: app, nav: nav, log: logger, out: os.Stdout}, args[1:])
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
