package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-transfer-monitor/internal/auth"
	"github.com/feral-file/ff-transfer-monitor/internal/authorizer"
	"github.com/feral-file/ff-transfer-monitor/internal/config"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
)

const serviceName = "nft-transfer-authorizer"

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAuthorizerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

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

	authenticator, err := auth.NewAuthenticator(auth.Config{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	})
	if err != nil {
		logger.Fatal("Failed to create authenticator", zap.Error(err))
	}

	logger.Info("Starting NFT Transfer Authorizer")
	lambda.Start(authorizer.NewHandler(authenticator))
}
