package main

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-auth-server"
	"github.com/goliatone/go-auth-server/cmd/server/config"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	repo     auth.RepositoryManager
	sessions *auth.SessionManager
	mail     *auth.EmailService
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithSessions(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	StartTokenJanitor(ctx, app)

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*auth.Token)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = auth.NewRepositoryManager(client.DB())

	return nil
}

func WithSessions(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()
	scfg := app.Config().GetServer()
	mcfg := app.Config().GetMailer()

	app.sessions = auth.NewSessionManager(app.repo, acfg).
		WithLogger(app.GetLogger("auth"))

	var mailer auth.Mailer = auth.LogMailer{Logger: app.GetLogger("mailer")}
	if mcfg.GetEnabled() {
		mailer = auth.SMTPMailer{
			Addr:     mcfg.GetAddr(),
			From:     mcfg.GetFrom(),
			Username: mcfg.GetUsername(),
			Password: mcfg.GetPassword(),
		}
	}

	mail, err := auth.NewEmailService(mailer, scfg.GetBaseURL(), app.GetLogger("mailer"))
	if err != nil {
		return err
	}
	app.mail = mail

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()
	scfg := app.Config().GetServer()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			AppName:       "auth-server",
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	errHandler := auth.NewHTTPErrorHandler(app.GetLogger("http"), scfg.GetProduction())
	guard := auth.NewRouteGuard(acfg, app.sessions.TokenService(), errHandler)

	controller := auth.NewHTTPController(
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithControllerRepo(app.repo),
		auth.WithControllerSessions(app.sessions),
		auth.WithControllerMailer(app.mail),
		auth.WithControllerErrorHandler(errHandler),
	)

	srv.Router().Get("/health", func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	controller.RegisterRoutes(srv.Router().Group("/v1"), guard)

	app.srv = srv

	return nil
}

// StartTokenJanitor drops expired token rows in the background so the
// table does not grow without bound
func StartTokenJanitor(ctx context.Context, app *App) {
	logger := app.GetLogger("janitor")

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := app.repo.Tokens().PurgeExpired(ctx, time.Now())
				if err != nil {
					logger.Error("token purge failed", "error", err)
					continue
				}
				if purged > 0 {
					logger.Info("purged expired tokens", "count", purged)
				}
			}
		}
	}()
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(
		ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
