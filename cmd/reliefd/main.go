// Reliefd is a recovery operations daemon with an HTTP control plane.
//
// This binary runs the task orchestration engine with full service
// initialization: configuration, structured logging, OpenTelemetry,
// NATS event fan-out (embedded server by default), the LLM planner and
// command interpreter, and the HTTP/SSE API.
//
// Configuration is loaded from ~/.config/reliefd/config.yaml and
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	reliefd
//
//	# Configure via environment
//	SERVER_PORT=9090 PLANNER_MODEL=gpt-4o reliefd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/reliefd/internal/config"
	"github.com/fyrsmithlabs/reliefd/internal/events"
	"github.com/fyrsmithlabs/reliefd/internal/interpreter"
	"github.com/fyrsmithlabs/reliefd/internal/logging"
	"github.com/fyrsmithlabs/reliefd/internal/ops"
	"github.com/fyrsmithlabs/reliefd/internal/planner"
	"github.com/fyrsmithlabs/reliefd/internal/telemetry"
	"github.com/fyrsmithlabs/reliefd/pkg/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  reliefd           Start the reliefd daemon\n")
			fmt.Fprintf(os.Stderr, "  reliefd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("reliefd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize telemetry and the structured logger
//  3. Start or connect to NATS for event fan-out
//  4. Build the planner and interpreter model clients
//  5. Create the orchestration engine and wire event publishing
//  6. Start the HTTP server
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadWithFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromApp(cfg.Observability), nil)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	zl := logger.Zap()
	zl.Info("Starting reliefd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	deps, err := initDependencies(cfg, zl)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close()

	zl.Info("Dependencies initialized",
		zap.Bool("nats_connected", deps.natsConn != nil),
		zap.Bool("embedded_nats", deps.natsServer != nil))

	orch, err := ops.New(deps.planner, deps.interpreter, zl, ops.Config{
		TaskDelay:          cfg.Ops.TaskDelay.Duration(),
		PlannerTimeout:     cfg.Ops.PlannerTimeout.Duration(),
		InterpreterTimeout: cfg.Ops.InterpreterTimeout.Duration(),
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	defer orch.Close()

	// Fan out activity entries and state transitions to NATS so SSE
	// clients and external subscribers see them live.
	publisher := events.NewPublisher(deps.natsConn, zl)
	orch.Activity().OnAppend(publisher.PublishEntry)
	orch.OnTransition(publisher.PublishTransition)

	srv := server.NewServer(cfg.Server, orch, deps.natsConn, zl)

	zl.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"),
		zap.String("activity_stream", "/v1/activity/stream"))

	return srv.Start(ctx)
}

// dependencies holds infrastructure handles that outlive initialization.
type dependencies struct {
	natsConn    *nats.Conn
	natsServer  natsShutdowner
	planner     ops.Planner
	interpreter ops.Interpreter
}

// natsShutdowner is the slice of the embedded server used at shutdown.
type natsShutdowner interface {
	Shutdown()
	WaitForShutdown()
}

// Close releases infrastructure resources in dependency order.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if d.natsServer != nil {
		d.natsServer.Shutdown()
		d.natsServer.WaitForShutdown()
	}
}

// initLogger builds the structured logger from the logging section.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = level
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	return logging.NewLogger(logCfg, nil)
}

// initDependencies starts NATS (embedded unless an external URL is
// configured) and builds the model clients.
func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}

	natsURL := cfg.NATS.URL
	if natsURL == "" {
		srv, err := events.StartEmbeddedServer(cfg.NATS.Host, cfg.NATS.Port)
		if err != nil {
			return nil, fmt.Errorf("starting embedded NATS server: %w", err)
		}
		deps.natsServer = srv
		natsURL = srv.ClientURL()
		logger.Info("Embedded NATS server started", zap.String("url", natsURL))
	}

	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("connecting to NATS at %s: %w", natsURL, err)
	}
	deps.natsConn = nc
	logger.Info("Connected to NATS", zap.String("url", natsURL))

	pl, err := planner.NewLLM(planner.Config{
		BaseURL:     cfg.Planner.BaseURL,
		Model:       cfg.Planner.Model,
		APIKey:      cfg.Planner.APIKey.Value(),
		Temperature: cfg.Planner.Temperature,
	})
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("creating planner client: %w", err)
	}
	deps.planner = pl

	in, err := interpreter.NewLLM(interpreter.Config{
		BaseURL:     cfg.Interpreter.BaseURL,
		Model:       cfg.Interpreter.Model,
		APIKey:      cfg.Interpreter.APIKey.Value(),
		Temperature: cfg.Interpreter.Temperature,
	})
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("creating interpreter client: %w", err)
	}
	deps.interpreter = in

	logger.Info("Model clients initialized",
		zap.String("planner_model", cfg.Planner.Model),
		zap.String("interpreter_model", cfg.Interpreter.Model))

	return deps, nil
}
