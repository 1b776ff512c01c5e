package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/command"
	"github.com/edgecomet/pagesaver/internal/common/config"
	"github.com/edgecomet/pagesaver/internal/common/configtypes"
	logutil "github.com/edgecomet/pagesaver/internal/common/logger"
	"github.com/edgecomet/pagesaver/internal/common/metricsserver"
	"github.com/edgecomet/pagesaver/internal/metrics"
	"github.com/edgecomet/pagesaver/internal/pipeline"
	"github.com/edgecomet/pagesaver/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("c", "configs/snapshot-service.yaml",
		"Path to snapshot service configuration file")
	flag.Parse()

	// Initialize logger (will be reconfigured from config)
	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	cfg, err := config.LoadSnapshotConfig(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// INFO during startup even when a higher level is configured
	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}

	logger := dynamicLogger.Logger

	logger.Info("Snapshot Service starting",
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("chrome", cfg.Chrome.Enabled),
		zap.Bool("pdf", cfg.PDF.Enabled))

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, metrics.SubsystemSnapshot, logger)
	metricsServer := metricsserver.Start(cfg.Metrics, metricsCollector, logger)

	p, err := pipeline.Build(cfg, metricsCollector, logger)
	if err != nil {
		logger.Fatal("Failed to build snapshot pipeline", zap.Error(err))
	}

	if cfg.Server.StartURL != "" {
		navCtx, navCancel := context.WithTimeout(context.Background(), cfg.Server.Timeout.ToDuration())
		if err := p.Session.Navigate(navCtx, cfg.Server.StartURL); err != nil {
			logger.Error("Failed to capture start URL", zap.String("url", cfg.Server.StartURL), zap.Error(err))
		}
		navCancel()
	}

	// background saves outlive their request but not the process
	baseCtx, baseCancel := context.WithCancel(context.Background())
	dispatcher := command.NewDispatcher(baseCtx, p.Session, metricsCollector, logger)

	httpHandler := service.CreateHTTPHandler(dispatcher, p.Session, cfg.Server.Timeout.ToDuration(), metricsCollector, logger)

	serverTimeout := cfg.CalculateServerTimeout()

	server := &fasthttp.Server{
		Handler:      httpHandler,
		ReadTimeout:  serverTimeout,
		WriteTimeout: serverTimeout,
		IdleTimeout:  serverTimeout,
		Name:         "SnapshotService",
	}

	listen, err := configtypes.NormalizeListen(cfg.Server.Listen)
	if err != nil {
		logger.Fatal("Failed to parse server.listen", zap.Error(err))
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("listen", listen))
		if err := server.ListenAndServe(listen); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait briefly for HTTP server to start listening
	time.Sleep(100 * time.Millisecond)

	select {
	case err := <-serverErrCh:
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	default:
	}

	logger.Info("Snapshot Service ready",
		zap.String("listen", listen),
		zap.Bool("page_loaded", p.Session.Loaded()))

	dynamicLogger.SwitchToConfiguredLevel()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		logger.Error("Server error", zap.Error(err))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("Shutting down gracefully...")

	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.ShutdownWithContext(metricsShutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		}
		metricsShutdownCancel()
	}

	// Complete in-flight commands
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Give pending background saves the shutdown window, then cancel them
	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Background saves still running, cancelling")
		baseCancel()
		<-done
	}
	baseCancel()

	p.Close()

	logger.Info("Snapshot Service stopped")
}
