package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-zerotrust/pkg/api"
	"github.com/dd0wney/cluso-zerotrust/pkg/config"
	"github.com/dd0wney/cluso-zerotrust/pkg/engine"
	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
	"github.com/dd0wney/cluso-zerotrust/pkg/server"
	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: json or text (overrides config)")
	seed := flag.Int64("seed", 0, "Random seed for reproducible simulations (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over file and environment
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.Server.LogFormat = *logFormat
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}

	logger := buildLogger(cfg.Server)
	logging.SetDefaultLogger(logger)

	logger.Info("🚀 Zero-Trust Simulator starting")

	network, err := simnet.NewNetwork(cfg.Network.ToSimnet())
	if err != nil {
		logger.Error("failed to build network", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("📡 Network initialized",
		logging.Int("devices", network.TotalDevices()),
		logging.Int("users", network.TotalUsers()))

	eng, err := engine.New(engine.Config{
		Network: network,
		Logger:  logger,
		Seed:    cfg.Simulation.Seed,
	})
	if err != nil {
		logger.Error("failed to create engine", logging.Error(err))
		os.Exit(1)
	}
	defer eng.Close()

	apiServer := api.NewServer(eng, logger)
	defer apiServer.StopMetrics()

	srv := server.NewGracefulServer(cfg.Server.Addr, apiServer.Handler(), logger)
	srv.SetShutdownTimeout(cfg.Server.ShutdownTimeout.Std())
	srv.SetConfigReloadFunc(func() error {
		reloaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		logger.SetLevel(logging.ParseLevel(reloaded.Server.LogLevel))
		logger.Info("log level reloaded", logging.String("level", reloaded.Server.LogLevel))
		return nil
	})

	logger.Info("✅ Server ready",
		logging.String("addr", cfg.Server.Addr),
		logging.String("dashboard", fmt.Sprintf("ws://localhost%s/ws", cfg.Server.Addr)))
	logger.Info("📊 Health check", logging.String("url", fmt.Sprintf("http://localhost%s/health", cfg.Server.Addr)))

	if err := srv.Start(); err != nil {
		logger.Error("server error", logging.Error(err))
		os.Exit(1)
	}

	logger.Info("server exited")
}

// buildLogger constructs the process logger from the server config.
// Interactive runs usually want text, deployments json.
func buildLogger(cfg config.ServerConfig) logging.Logger {
	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.LogFormat == "text" {
		return logging.NewTextLogger(os.Stdout, level)
	}
	return logging.NewJSONLogger(os.Stdout, level)
}
