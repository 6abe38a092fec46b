// Command server runs the lead intake HTTP service.
//
// @title                      Lead Intake API
// @version                    1.0
// @description                Intake, listing and state tracking of prospective client submissions.
// @BasePath                   /
// @securityDefinitions.basic  BasicAuth
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-leads-backend/docs"
	"github.com/tbourn/go-leads-backend/internal/auth"
	"github.com/tbourn/go-leads-backend/internal/config"
	httpapi "github.com/tbourn/go-leads-backend/internal/http"
	"github.com/tbourn/go-leads-backend/internal/jobs"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/observability"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	log := sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore(cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close(db) }()
	log.Info().Str("driver", cfg.DB.Driver).Msg("lead store ready")

	authn, err := auth.NewStaticCredentials(cfg.Auth)
	if err != nil {
		return err
	}
	if !authn.Configured() {
		log.Warn().Msg("no operator credentials configured; protected routes will reject every request")
	}

	dispatcher, closeNotify, err := startNotifier(ctx, cfg.Notify, log)
	if err != nil {
		return err
	}
	defer closeNotify()

	sched, err := jobs.NewScheduler(log)
	if err != nil {
		return err
	}
	if err := sched.SchedulePurge(jobs.PurgeInterval(cfg.IdempotencyTTL), func(ctx context.Context, now time.Time) (int64, error) {
		return repo.PurgeExpiredIdempotency(ctx, db, now)
	}); err != nil {
		return err
	}
	sched.Start()
	defer func() { _ = sched.Stop() }()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, authn, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", appVersion).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := dispatcher.Close(sctx); err != nil {
		log.Warn().Err(err).Msg("notification queue not drained before deadline")
	}
	return nil
}

// openStore connects, instruments and migrates the lead store.
func openStore(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := repo.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := observability.InstrumentDB(db, nil); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = repo.Close(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// startNotifier builds the in-process dispatcher. With the asynq backend the
// dispatcher forwards jobs to Redis and a worker in this process delivers
// them; otherwise the dispatcher delivers directly. The returned cleanup
// releases backend resources after the dispatcher has been closed.
func startNotifier(ctx context.Context, cfg config.NotifyConfig, log zerolog.Logger) (*notify.Dispatcher, func(), error) {
	nlog := log.With().Str("component", "notify").Logger()
	deliverer := &notify.Deliverer{
		Sender:            notify.NewSender(cfg.SMTP, nlog),
		InternalRecipient: cfg.InternalRecipient,
		SendTimeout:       cfg.SendTimeout,
		Log:               nlog,
	}

	if cfg.Backend != "asynq" {
		return notify.NewDispatcher(deliverer, cfg.QueueSize, cfg.Workers, nlog), func() {}, nil
	}

	queue, err := notify.NewAsynqQueue(cfg.RedisURL, cfg.AsynqQueue, nlog)
	if err != nil {
		return nil, nil, fmt.Errorf("asynq client: %w", err)
	}
	worker, err := notify.NewAsynqWorker(cfg.RedisURL, cfg.AsynqQueue, cfg.Workers, deliverer, nlog)
	if err != nil {
		_ = queue.Close()
		return nil, nil, fmt.Errorf("asynq worker: %w", err)
	}
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(wctx)
	}()

	cleanup := func() {
		cancel()
		<-done
		_ = queue.Close()
	}
	return notify.NewDispatcher(queue, cfg.QueueSize, cfg.Workers, nlog), cleanup, nil
}
