package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/config"
	"github.com/goliatone/go-portal-auth/contact"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/goliatone/go-portal-auth/entitystore/bunstore"
	"github.com/goliatone/go-portal-auth/entitystore/webapi"
	"github.com/goliatone/go-portal-auth/identity"
	"github.com/goliatone/go-portal-auth/provider/jwks"
	"github.com/goliatone/go-portal-auth/provider/portals"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config   *gconfig.Container[*config.Config]
	logger   *glog.BaseLogger
	store    entitystore.Client
	users    *identity.Store
	pipeline *portals.Pipeline
	srv      router.Server[*fiber.App]
	closers  []func()
}

func (a *App) Config() *config.Config {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("portal"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(config.Defaults()).
		WithLogger(lgr.GetLogger("config"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.Load(ctx); err != nil {
		lgr.Fatal("unable to load configuration", "error", err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}
	defer app.Close()

	if err := WithEntityStore(ctx, app); err != nil {
		lgr.Fatal("unable to create entity store client", "error", err)
	}

	if err := WithTokenPipeline(ctx, app); err != nil {
		lgr.Fatal("unable to configure token validation", "error", err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		lgr.Fatal("unable to create http server", "error", err)
	}

	ContactRoutes(app)
	UserRoutes(app)

	go func() {
		if err := app.srv.Serve(app.Config().Server.Address); err != nil {
			lgr.Error("http server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("http server shutdown failed", "error", err)
	}
}

// WithEntityStore builds the shared entity store client. The webapi driver
// talks to the remote organization, bunstore keeps records in sqlite.
func WithEntityStore(ctx context.Context, app *App) error {
	cfg := app.Config()

	switch cfg.Store.Driver {
	case config.StoreBunLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Store.DSN)
		if err != nil {
			return err
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		app.onClose(func() { _ = db.Close() })

		store := bunstore.New(db, bunstore.WithLogger(app.GetLogger("bunstore")))
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		app.store = store

	default:
		wcfg := cfg.CdsServiceClient.ClientConfig()
		wcfg.LoggerProvider = app.logger
		client, err := webapi.NewClient(ctx, wcfg)
		if err != nil {
			return err
		}
		app.onClose(func() { _ = client.Close() })
		app.store = client
	}

	app.users = identity.NewStore(app.store,
		identity.WithSessionClone(cfg.CdsServiceClient.IncludeOrganizationServiceContext),
		identity.WithLoggerProvider(app.logger),
	)

	return nil
}

// WithTokenPipeline resolves the portal signing key and builds the bearer
// pipeline. A key that cannot be resolved stops the process.
func WithTokenPipeline(ctx context.Context, app *App) error {
	cfg := app.Config()

	pcfg, err := cfg.PowerAppsPortal.PortalConfig()
	if err != nil {
		return err
	}
	pcfg.LoggerProvider = app.logger

	opts := portals.PipelineOptions{
		ContextKey: auth.DefaultContextKey,
	}

	if cfg.JWKS.Enabled {
		jcfg := cfg.JWKS.ValidatorConfig()
		jcfg.LoggerProvider = app.logger
		federated, err := jwks.NewTokenValidator(ctx, jcfg)
		if err != nil {
			return err
		}
		app.onClose(federated.Close)
		opts.Validators = append(opts.Validators, federated)
	}

	pipeline, err := portals.NewPipeline(ctx, pcfg, opts)
	if err != nil {
		return err
	}
	pipeline.Validator.Start(ctx)
	app.onClose(pipeline.Close)
	app.pipeline = pipeline

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.Config()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		f := router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
		f.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins(),
			AllowMethods: cfg.CORSMethods(),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))
		return f
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.SendString(cfg.Server.Banner)
	})

	app.srv = srv
	return nil
}

func ContactRoutes(app *App) {
	cfg := app.Config()

	ctrl := contact.NewHTTPController(app.store, contact.HTTPConfig{
		ContextKey:   auth.DefaultContextKey,
		CloneSession: cfg.CdsServiceClient.IncludeOrganizationServiceContext,
		Logger:       app.GetLogger("contact"),
	})

	ctrl.RegisterRoutes(app.srv.Router().Group("/contact"), app.pipeline.Middleware())
}

func UserRoutes(app *App) {
	ctrl := identity.NewHTTPController(app.users, identity.HTTPConfig{
		Logger: app.GetLogger("identity"),
	})

	ctrl.RegisterRoutes(app.srv.Router().Group("/users"), app.pipeline.Middleware())
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
