package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/config"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/metrics"
	"github.com/feral-file/ff-transfer-monitor/internal/monitor"
	"github.com/feral-file/ff-transfer-monitor/internal/providers/ethereum"
	"github.com/feral-file/ff-transfer-monitor/internal/store"
)

const serviceName = "nft-transfer-monitor"

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	once       = flag.Bool("once", false, "Run a single poll and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMonitorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
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
	logger.InfoCtx(ctx, "Starting NFT Transfer Monitor",
		zap.String("chain", string(cfg.Ethereum.ChainID)),
		zap.String("contract", cfg.Ethereum.ContractAddress))

	// Connect to DynamoDB, creating the tables on first use
	dynamoDialer := adapter.NewDynamoDBDialer()
	dynamoOptions := adapter.DynamoDBOptions{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
	}

	eventsDAO, err := store.NewTransferEventDAO(cfg.DynamoDB.EventsTable, dynamoDialer, dynamoOptions,
		store.WithTableActiveTimeout(cfg.DynamoDB.TableActiveTimeout))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create transfer event store", zap.Error(err))
	}
	if _, err := eventsDAO.Connect(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to connect transfer event store", zap.Error(err), zap.String("table", eventsDAO.TableName()))
	}

	parametersDAO, err := store.NewParameterDAO(cfg.DynamoDB.ParametersTable, dynamoDialer, dynamoOptions,
		store.WithTableActiveTimeout(cfg.DynamoDB.TableActiveTimeout))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create parameter store", zap.Error(err))
	}
	if _, err := parametersDAO.Connect(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to connect parameter store", zap.Error(err), zap.String("table", parametersDAO.TableName()))
	}
	logger.InfoCtx(ctx, "Connected to DynamoDB", zap.String("endpoint", cfg.DynamoDB.Endpoint))

	// Initialize ethereum client
	ethDialer := adapter.NewEthClientDialer()
	adapterEthClient, err := ethDialer.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err))
	}
	ethereumClient, err := ethereum.NewClient(ethereum.Config{
		ChainID:         cfg.Ethereum.ChainID,
		ContractAddress: cfg.Ethereum.ContractAddress,
		BlockRange:      cfg.Ethereum.BlockRange,
		MaxRetries:      cfg.Ethereum.MaxRetries,
		RetryInterval:   cfg.Ethereum.RetryInterval,
	}, adapterEthClient)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create Ethereum client", zap.Error(err))
	}
	defer ethereumClient.Close()

	registry := prometheus.NewRegistry()
	monitorMetrics, err := metrics.NewMonitorMetrics(registry)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to register metrics", zap.Error(err))
	}

	transferMonitor := monitor.NewMonitor(
		ethereumClient,
		eventsDAO,
		store.NewCursorStore(parametersDAO),
		monitorMetrics,
		adapter.NewClock(),
		monitor.Config{
			ChainID:            cfg.Ethereum.ChainID,
			StartBlock:         cfg.Ethereum.StartBlock,
			PersistConcurrency: cfg.Polling.PersistConcurrency,
		},
	)

	// Scheduled invocations on Lambda, one run per event
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(monitor.NewScheduledHandler(transferMonitor))
		return
	}

	if *once {
		result, err := transferMonitor.Run(ctx)
		if err != nil {
			logger.FatalCtx(ctx, "Transfer monitor run failed", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Transfer monitor run finished",
			zap.Int("events", result.EventsFound),
			zap.Uint64("lastBlockChecked", result.LastBlockChecked))
		return
	}

	// Serve metrics while polling
	metricsServer := &http.Server{
		Addr:              cfg.Polling.MetricsAddress,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCtx(ctx, err, zap.String("component", "metrics"))
		}
	}()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		monitor.RunEvery(ctx, transferMonitor, cfg.Polling.Interval)
	}()

	sig := <-sigCh
	logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("NFT Transfer Monitor stopped")
}
