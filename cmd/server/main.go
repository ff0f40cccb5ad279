package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"codebuddy/internal/config"
	"codebuddy/internal/controllers"
	"codebuddy/internal/gateway"
	"codebuddy/internal/logger"
	"codebuddy/internal/middleware"
	"codebuddy/internal/routes"
	"codebuddy/internal/scheduler"
)

const (
	limiterSweepJob  = "login-limiter-sweep"
	limiterSweepSpec = "@every 10m"
	limiterIdle      = 30 * time.Minute
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("Server failed")
	}
}

func run() error {
	cfg := config.Load()
	log := logger.Setup(cfg.LogFile, cfg.LogLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The database must be reachable before the listener opens.
	connector := config.NewConnector(cfg.Database, log)
	db, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer connector.Close()

	hub := controllers.NewInterviewHub(log)
	defer hub.Close()

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.JWTTTL)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)

	opts := gateway.Options{
		Env:             cfg.Env,
		AllowedOrigin:   cfg.AllowedOrigin,
		BodyLimit:       cfg.BodyLimit,
		TrustedProxies:  cfg.TrustedProxies,
		DB:              connector,
		Logger:          log,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.AccessLog {
		opts.AccessLog = os.Stdout
	}
	gw := gateway.New(opts)

	mounts := routes.Collections(routes.Deps{
		DB:            db,
		Auth:          auth,
		LoginLimiter:  loginLimiter,
		Hub:           hub,
		AllowedOrigin: cfg.AllowedOrigin,
		Log:           log,
		Now:           time.Now,
	})
	for _, m := range mounts {
		if err := gw.Mount(m.Prefix, m.Collection); err != nil {
			return err
		}
	}

	runner := scheduler.NewRunner(log, 0)
	registerJobs(ctx, runner, cfg, db, loginLimiter, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		return gw.Start(gctx, cfg.Port)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// registerJobs wires background work. Failures are logged by the runner
// and never stop the server.
func registerJobs(ctx context.Context, runner *scheduler.Runner, cfg config.Config, db *gorm.DB, limiter *middleware.RateLimiter, log *logrus.Logger) {
	daily := scheduler.DailyQuestions(db, cfg.DailyQuestionsPerTopic, time.Now)
	if err := runner.Register(scheduler.DailyQuestionsJob, cfg.DailyQuestionCron, daily); err == nil && cfg.DailyQuestionsOnStart {
		go func() {
			_ = runner.RunNow(ctx, scheduler.DailyQuestionsJob)
		}()
	}

	_ = runner.Register(limiterSweepJob, limiterSweepSpec, func(context.Context) error {
		if n := limiter.Sweep(limiterIdle); n > 0 {
			log.WithField("removed", n).Debug("Swept idle login limiters")
		}
		return nil
	})
}
