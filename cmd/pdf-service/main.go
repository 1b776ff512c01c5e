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

	"github.com/edgecomet/pagesaver/internal/common/config"
	"github.com/edgecomet/pagesaver/internal/common/configtypes"
	logutil "github.com/edgecomet/pagesaver/internal/common/logger"
	"github.com/edgecomet/pagesaver/internal/common/metricsserver"
	"github.com/edgecomet/pagesaver/internal/metrics"
	"github.com/edgecomet/pagesaver/internal/pdfservice"
)

func main() {
	configPath := flag.String("c", "configs/pdf-service.yaml",
		"Path to PDF service configuration file")
	flag.Parse()

	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	cfg, err := config.LoadPDFServiceConfig(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}

	logger := dynamicLogger.Logger
	serviceCfg := cfg.ServiceConfig()

	logger.Info("PDF Service starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("paper", serviceCfg.Paper.Size),
		zap.Bool("landscape", serviceCfg.Paper.Landscape))

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, metrics.SubsystemPDF, logger)
	metricsServer := metricsserver.Start(cfg.Metrics, metricsCollector, logger)

	logger.Info("Starting headless Chrome")
	renderer, err := pdfservice.NewChromeRenderer(serviceCfg, logger)
	if err != nil {
		logger.Fatal("Failed to start Chrome", zap.Error(err))
	}

	converter := pdfservice.NewConverter(renderer, serviceCfg.OutputDir, metricsCollector, logger)
	pdfServer := pdfservice.NewServer(converter, serviceCfg.Timeout, metricsCollector, logger)

	serverTimeout := cfg.CalculateServerTimeout()

	server := &fasthttp.Server{
		Handler:      pdfServer.CreateHTTPHandler(),
		ReadTimeout:  serverTimeout,
		WriteTimeout: serverTimeout,
		IdleTimeout:  serverTimeout,
		Name:         "PDFService",
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

	time.Sleep(100 * time.Millisecond)

	select {
	case err := <-serverErrCh:
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	default:
	}

	logger.Info("PDF Service ready", zap.String("listen", listen))

	dynamicLogger.SwitchToConfiguredLevel()

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := renderer.Close(); err != nil {
		logger.Error("Chrome shutdown error", zap.Error(err))
	}

	logger.Info("PDF Service stopped")
}
