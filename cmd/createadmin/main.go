// Command createadmin creates an administrator account interactively.
package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authapi_backend/internal/app"
	"authapi_backend/internal/auth"
	"authapi_backend/internal/config"
	"authapi_backend/internal/logger"
	"authapi_backend/internal/metrics"
	"authapi_backend/internal/services"
	"authapi_backend/internal/validator"

	"golang.org/x/term"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	userRepo, closeDB, err := app.OpenUserRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to open user storage", "error", err)
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Администратору письма не нужны, Notifier не вызывается
	authService := services.NewAuthService(userRepo, auth.NewSessionIssuer(auth.SessionConfig{}),
		auth.LinkBuilder{}, nil, metrics.Nop{})

	p := &prompter{
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		readPassword: func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) },
		validator:    validator.New(),
		creator:      authService,
		retryDelay:   1500 * time.Millisecond,
	}
	if err := p.run(ctx); err != nil {
		logger.Error("Admin was not created", "error", err)
		closeDB()
		os.Exit(1)
	}
}
