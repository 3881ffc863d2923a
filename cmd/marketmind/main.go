package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/marketmind/marketmind/internal/adapters/bedrock"
	"github.com/marketmind/marketmind/internal/adapters/cognito"
	"github.com/marketmind/marketmind/internal/adapters/marketdata"
	"github.com/marketmind/marketmind/internal/adapters/observability"
	"github.com/marketmind/marketmind/internal/adapters/providers"
	appconfig "github.com/marketmind/marketmind/internal/config"
	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
	"github.com/marketmind/marketmind/internal/core/services"
	"github.com/marketmind/marketmind/pkg/kernel"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting marketmind")

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}

	// Outbound adapters
	stockRepo := marketdata.NewYahooRepository(cfg.MarketData.BaseURL)
	documentRepo := bedrock.NewDocumentRepository(awsCfg, cfg.AWS.KnowledgeBaseID, logger)

	sink, localTraces, shutdownObservability, err := observability.Build(ctx, cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObservability(shutdownCtx); err != nil {
			logger.Error("observability shutdown failed", "error", err)
		}
	}()

	model, err := providers.BuildChatModel(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to build chat model: %w", err)
	}
	logger.Info("chat model ready", "provider", cfg.LLM.Provider, "model", model.ModelID())

	// Core services and the tools they back
	stockService := services.NewStockService(stockRepo, logger)
	documentService := services.NewDocumentService(documentRepo, logger)

	registry := domain.NewToolRegistry()
	for _, tool := range []*domain.Tool{
		services.NewRealtimeStockPriceTool(stockService),
		services.NewHistoricalStockPricesTool(stockService),
		services.NewDocumentSearchTool(documentService),
	} {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}

	orchestrator := services.NewAgentOrchestrator(model, registry, sink, cfg.MaxIterations, logger)

	// Cognito is optional in local development
	var auth ports.Authenticator
	if !cfg.AuthDisabled {
		cognitoAuth, err := cognito.NewAuthService(ctx, awsCfg, cfg.AWS.Region, cfg.AWS.UserPoolID, cfg.AWS.ClientID, logger)
		if err != nil {
			return fmt.Errorf("failed to init cognito auth: %w", err)
		}
		auth = cognitoAuth
	} else {
		logger.Warn("authentication disabled")
	}

	var traces kernel.TraceReader
	if localTraces != nil {
		traces = localTraces
	}

	apiServer, err := kernel.NewServer(logger, orchestrator, auth, traces, cfg.AuthDisabled)
	if err != nil {
		return fmt.Errorf("failed to init api server: %w", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting api server", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
