package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/empowerhr/empower-client/api"
	"github.com/empowerhr/empower-client/auth"
	"github.com/empowerhr/empower-client/internal/config"
	"github.com/empowerhr/empower-client/session"
	"github.com/empowerhr/empower-client/session/memstore"
	"github.com/empowerhr/empower-client/session/sqlitestore"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
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

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	cfg := config.NewFromEnvVars(settings)

	if len(args) == 0 {
		displayAppname(cfg.GetAppName())
		usage()
		return nil
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	return app.dispatch(context.Background(), args[0], args[1:])
}

// app wires the session store, auth controller and API client together for
// the command handlers.
type app struct {
	cfg        config.Config
	store      *session.Store
	controller *auth.Controller
	client     *api.Client
	logger     zerolog.Logger
}

func newApp(cfg config.Config) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.GetSessionDBPath()), 0o700); err != nil {
		return nil, fmt.Errorf("create data folder: %w", err)
	}
	durable, err := sqlitestore.Open(cfg.GetSessionDBPath(), cfg.GetSealKey())
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	store := session.New(durable, memstore.New(), session.WithLogger(logger))

	exchanger := auth.NewOAuth2Exchanger(cfg)
	controller, err := auth.NewController(store, exchanger,
		auth.WithRefreshLead(cfg.GetRefreshLead()),
		auth.WithControllerLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg, controller,
		api.WithLogger(logger),
		api.WithUnauthorizedHandler(controller.Logout),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		store:      store,
		controller: controller,
		client:     client,
		logger:     logger,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing session store")
	}
}

func newLogger(cfg config.EnvConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", cfg.GetLogLevel(), err)
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println("Usage: empower <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login    -username <name> [-password <pwd>] [-remember]")
	fmt.Println("  logout")
	fmt.Println("  whoami")
	fmt.Println("  refresh")
	fmt.Println("  bands    [-page N] [-size N] [-name filter]")
	fmt.Println("  titles   [-page N] [-size N] [-name filter]")
}
