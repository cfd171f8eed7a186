package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/api"
	metrics "github.com/dardanova/dardanova/integrations/prometheus"
	"github.com/dardanova/dardanova/internal/config"
	"github.com/dardanova/dardanova/sudoapi"
	"github.com/dardanova/dardanova/sudoapi/flags"
	"github.com/dardanova/dardanova/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"
)

var (
	confPath  = flag.String("config", "./config.toml", "Config path")
	flagsPath = flag.String("flags", "./flags.json", "Flags path")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [serve | migrate | adduser -email E -name N -password P]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Load(*confPath); err != nil {
		slog.ErrorContext(ctx, "Couldn't load config", slog.Any("err", err))
		os.Exit(1)
	}
	config.SetFlagsPath(*flagsPath)
	if err := config.LoadFlags(ctx); err != nil {
		slog.ErrorContext(ctx, "Couldn't load flags", slog.Any("err", err))
		os.Exit(1)
	}

	logger, logFile := dardanova.GetLogger(config.Common.Debug, os.Stdout, config.Common.LogDir)
	defer logFile.Close()
	slog.SetDefault(logger)

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "", "serve":
		err = serve(ctx)
	case "migrate":
		err = migrate(ctx)
	case "adduser":
		err = addUser(ctx, flag.Args()[1:])
	default:
		flag.Usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Exiting with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting Dardanova")
	if config.Common.Debug {
		slog.WarnContext(ctx, "Debug mode activated")
	}

	base, err := sudoapi.InitializeBaseAPI(ctx)
	if err != nil {
		return err
	}
	defer base.Close()
	base.Start(ctx)

	metrics.InitMetrics()

	limiter := api.NewRateLimiter(flags.ContactRateLimit.Value(), api.ContactWindow)
	limiter.Start(ctx)

	r := chi.NewRouter()
	r.Use(otelchi.Middleware("dardanova", otelchi.WithChiRoutes(r)))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(20 * time.Second))

	r.Mount("/api", api.New(base, limiter).Handler())
	r.Mount("/", web.NewWeb(base, limiter).Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(flags.ListenHost.Value(), strconv.Itoa(flags.ListenPort.Value())),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "Listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.InfoContext(ctx, "Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrate(ctx context.Context) error {
	if config.Database.DSN == "" {
		return errors.New("no database configured")
	}
	store, err := sudoapi.OpenStore(ctx, true)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Migrations applied")
	return store.Close()
}

func addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	email := fs.String("email", "", "Email of the new admin")
	name := fs.String("name", "", "Display name of the new admin")
	password := fs.String("password", "", "Password of the new admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if config.Database.DSN == "" {
		return errors.New("no database configured, users of the in-memory store are lost on exit")
	}

	store, err := sudoapi.OpenStore(ctx, flags.MigrateOnStart.Value())
	if err != nil {
		return err
	}
	defer store.Close()

	// Sessions are not opened here, any secret will do
	base, err := sudoapi.GetBaseAPI(store, nil, nil, []byte(dardanova.RandomString(32)))
	if err != nil {
		return err
	}
	id, err := base.CreateUser(ctx, *email, *name, *password)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Created user", slog.Int("id", id), slog.String("email", *email))
	return nil
}
