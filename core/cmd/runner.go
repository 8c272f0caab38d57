// Package cmd runs the bot process: config, bootstrap, transports, shutdown.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/m3rciful/leadbot/core/app"
	"github.com/m3rciful/leadbot/core/bootstrap"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
)

// ShutdownTimeout bounds the graceful stop of the HTTP server and Telegram runtime.
const ShutdownTimeout = 10 * time.Second

// Options describe how to load configuration, bootstrap the app, and run it.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, wires the app and serves until SIGINT or SIGTERM.
func Run(opts Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunContext(ctx, opts)
}

// RunContext is Run with a caller-controlled lifetime.
func RunContext(ctx context.Context, opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	boot := opts.Bootstrap
	if boot == nil {
		boot = func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
		}
	}
	startedAt := time.Now()
	res, err := boot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(context.Background(), "db", "close_failed", slog.String("err", err.Error()))
		}
	}()

	application, err := app.Build(ctx, cfg, app.Deps{DB: res.DB})
	if err != nil {
		return fmt.Errorf("cmd: app build failed: %w", err)
	}
	defer application.Close()

	runTelegram := opts.RunTelegram
	if runTelegram == nil {
		runTelegram = coretelegram.RunTelegram
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	srv := application.HTTP
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info(ctx, "http", "listen", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("cmd: http server: %w", err)
		}
	}()

	if application.Telegram != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runTelegram(runCtx, *application.Telegram); err != nil {
				errCh <- fmt.Errorf("cmd: telegram: %w", err)
			}
		}()
	}

	logger.Info(ctx, "app", "ready",
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	logger.Info(context.Background(), "app", "shutdown")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http", "shutdown_failed", slog.String("err", err.Error()))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn(context.Background(), "app", "shutdown_timeout",
			slog.Duration("timeout", ShutdownTimeout),
		)
	}

	return runErr
}
