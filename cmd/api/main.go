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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/invoicely/internal/assistant"
	"github.com/MrJamesThe3rd/invoicely/internal/auth"
	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/config"
	"github.com/MrJamesThe3rd/invoicely/internal/database"
	apiHttp "github.com/MrJamesThe3rd/invoicely/internal/http"
	assistantHandler "github.com/MrJamesThe3rd/invoicely/internal/http/assistant"
	categoryHandler "github.com/MrJamesThe3rd/invoicely/internal/http/category"
	incomeHandler "github.com/MrJamesThe3rd/invoicely/internal/http/income"
	invoiceHandler "github.com/MrJamesThe3rd/invoicely/internal/http/invoice"
	recurringHandler "github.com/MrJamesThe3rd/invoicely/internal/http/recurring"
	summaryHandler "github.com/MrJamesThe3rd/invoicely/internal/http/summary"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	incomeStore "github.com/MrJamesThe3rd/invoicely/internal/income/store"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/invoicely/internal/invoice/store"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
	settingsStore "github.com/MrJamesThe3rd/invoicely/internal/settings/store"
	"github.com/MrJamesThe3rd/invoicely/internal/summary"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Error("AUTH_JWT_SECRET is required")
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("failed to load recurring timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	invoices := invoiceStore.New(db)

	var (
		invoiceService = invoice.NewService(invoices)
		incomeService  = income.NewService(incomeStore.New(db))
		registry       = category.NewRegistry(settingsStore.New(db))
		summaryService = summary.NewService(invoiceService, incomeService)
		processor      = recurring.NewProcessor(invoices, recurring.WithLocation(loc))
		tokens         = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	)

	var (
		analyzer invoiceHandler.Analyzer
		chatter  assistantHandler.Chatter
	)

	if cfg.AI.APIKey != "" {
		client := assistant.New(assistant.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
		}, assistant.WithLocation(loc))

		analyzer, chatter = client, client
	} else {
		slog.Warn("AI_API_KEY not set, invoice analysis and chat are disabled")
	}

	router := apiHttp.New(apiHttp.Handlers{
		Invoices:   invoiceHandler.NewHandler(invoiceService, analyzer, registry),
		Income:     incomeHandler.NewHandler(incomeService),
		Categories: categoryHandler.NewHandler(registry),
		Recurring:  recurringHandler.NewHandler(processor),
		Summary:    summaryHandler.NewHandler(summaryService),
		Assistant:  assistantHandler.NewHandler(chatter, summaryService),
	}, tokens.Middleware, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
