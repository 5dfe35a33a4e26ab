package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/api/server"
	"github.com/feral-file/ff-transfer-monitor/internal/auth"
	"github.com/feral-file/ff-transfer-monitor/internal/config"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/store"
)

const serviceName = "nft-transfer-api"

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": serviceName,
		},
		Fields: []zap.Field{zap.String("service", serviceName)},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting NFT Transfer API")

	// Connect to DynamoDB
	eventsDAO, err := store.NewTransferEventDAO(cfg.DynamoDB.EventsTable, adapter.NewDynamoDBDialer(), adapter.DynamoDBOptions{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
	}, store.WithTableActiveTimeout(cfg.DynamoDB.TableActiveTimeout))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create transfer event store", zap.Error(err))
	}
	if _, err := eventsDAO.Connect(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to connect transfer event store", zap.Error(err), zap.String("table", eventsDAO.TableName()))
	}
	logger.InfoCtx(ctx, "Connected to DynamoDB", zap.String("table", eventsDAO.TableName()))

	var authenticator *auth.Authenticator
	if cfg.RequireAuth {
		authenticator, err = auth.NewAuthenticator(auth.Config{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create authenticator", zap.Error(err))
		}
	} else {
		logger.WarnCtx(ctx, "Credential check disabled, the API relies on the gateway authorizer")
	}

	// Create server config
	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:   cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:    cfg.Server.IdleTimeoutDuration(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsPath:    cfg.Server.MetricsPath,
	}
	srv := server.New(serverConfig, eventsDAO, authenticator)

	// API Gateway proxy integration on Lambda
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		handler, err := srv.NewLambdaHandler()
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create Lambda handler", zap.Error(err))
		}
		lambda.Start(handler)
		return
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
