package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"rs485console/config"
	"rs485console/gateway"
	"rs485console/monitoring"
	"rs485console/serial"
	"rs485console/sessionlog"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional, defaults apply without one)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	listPorts := flag.Bool("list-ports", false, "List available serial ports and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Display version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "RS485Console - serial device console service\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -config config.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list-ports\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("RS485Console version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if *listPorts {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Available serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none found)")
		} else {
			for _, port := range ports {
				fmt.Printf("  %s\n", port)
			}
		}
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n  %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		fmt.Printf("  Instance: %s\n", cfg.App.InstanceID)
		fmt.Printf("  Default device: %s @ %d baud\n", cfg.Serial.Device, cfg.Serial.BaudRate)
		fmt.Printf("  Monitoring: enabled=%v listen=%s\n", cfg.Monitoring.Enabled, cfg.Monitoring.Listen)
		os.Exit(0)
	}

	logger := setupLogging(cfg, *debug)
	slog.SetDefault(logger)

	logger.Info("RS485Console starting",
		"version", version,
		"instance", cfg.App.InstanceID,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig)
		cancel()
	}()

	sink := sessionlog.New(sessionlog.Options{
		Path:       cfg.SessionLog.Path,
		MaxSizeMB:  cfg.SessionLog.MaxSizeMB,
		MaxBackups: cfg.SessionLog.MaxBackups,
		Compress:   cfg.SessionLog.Compress,
	}, logger)
	defer sink.Close()

	session := serial.NewSession(logger)
	gw := gateway.New(session, logger, sink)

	var monitorServer *monitoring.Server
	if cfg.Monitoring.Enabled {
		monitorServer = monitoring.NewServer(&cfg.Monitoring, cfg.App.InstanceID, version, gw, logger)
		if err := monitorServer.Start(); err != nil {
			logger.Error("Failed to start monitoring server", "error", err)
			os.Exit(1)
		}
	}

	startTime := time.Now()
	logger.Info("RS485Console running",
		"monitoring", cfg.Monitoring.Enabled,
		"listen", cfg.Monitoring.Listen,
		"session_log", sink.Path(),
	)

	<-ctx.Done()

	logger.Info("RS485Console shutting down")

	if monitorServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := monitorServer.Stop(shutdownCtx); err != nil {
			logger.Warn("Error stopping monitoring server", "error", err)
		}
	}

	// The handle is released on every exit path; an open session never
	// outlives the process.
	if session.State() == serial.StateOpen {
		if err := gw.ClosePort(); err != nil {
			logger.Warn("Error closing serial session", "error", err)
		}
	}

	logger.Info("RS485Console stopped",
		"uptime", time.Since(startTime),
		"stats", gw.Stats(),
	)
}

func setupLogging(cfg *config.Config, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	if cfg.Logging.BasePath != "" {
		logPath := filepath.Join(cfg.Logging.BasePath, cfg.Logging.Filename)
		writer := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		}
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
