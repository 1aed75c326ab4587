package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaibhavdeo21/Finance-Server/internal/auth"
	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/config"
	"github.com/vaibhavdeo21/Finance-Server/internal/notify"
	"github.com/vaibhavdeo21/Finance-Server/internal/payments"
	"github.com/vaibhavdeo21/Finance-Server/internal/server"
	"github.com/vaibhavdeo21/Finance-Server/internal/service"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage/sqlite"
	"github.com/vaibhavdeo21/Finance-Server/pkg/logging"
)

func main() {
	logging.Setup()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	logger := slog.Default()
	az := authz.New(authz.DefaultPermissions())
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.DefaultCredits)
	notifier := &notify.LogNotifier{Logger: logger}
	gateway := payments.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)

	srv := server.New(
		service.NewAuthService(authenticator, jwtManager, store, logger),
		service.NewGroupService(store, az, logger),
		service.NewExpenseService(store, logger),
		service.NewSettlementService(store, cfg, logger),
		service.NewRbacService(store, az, notifier, logger),
		service.NewPaymentService(store, gateway, az, logger),
		jwtManager,
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	go func() {
		slog.Info("server listening", "addr", httpServer.Addr, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
