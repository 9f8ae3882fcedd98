package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/sessionfsd/internal/logger"
	"github.com/marmos91/sessionfsd/pkg/api"
	"github.com/marmos91/sessionfsd/pkg/config"
	"github.com/marmos91/sessionfsd/pkg/fileio"
	"github.com/marmos91/sessionfsd/pkg/observer"
	"github.com/marmos91/sessionfsd/pkg/observer/prometheus"
	"github.com/marmos91/sessionfsd/pkg/pathgate"
	"github.com/marmos91/sessionfsd/pkg/session"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sessionfsd server",
	Long: `Start the sessionfsd server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/sessionfsd/config.yaml.

Examples:
  # Start in background (default)
  sessionfsd start

  # Start in foreground
  sessionfsd start --foreground

  # Start with custom config file
  sessionfsd start --config /etc/sessionfsd/config.yaml

  # Start with environment variable overrides
  SESSIONFSD_LOGGING_LEVEL=DEBUG sessionfsd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/sessionfsd/sessionfsd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/sessionfsd/sessionfsd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("sessionfsd starting",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"config_source", getConfigSource(GetConfigFile()),
		"session_root", cfg.Session.Root)

	var recorder observer.Recorder
	if cfg.Metrics.Enabled {
		observer.InitRegistry()
		recorder = prometheus.NewRecorder()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics disabled")
	}

	tree := observer.NewTree(recorder)

	io := fileio.NewOS()
	gate, err := pathgate.New(io, cfg.Session.Root)
	if err != nil {
		return fmt.Errorf("failed to initialize path gate: %w", err)
	}

	manager := session.NewManager(session.Config{
		IO:                  io,
		Gate:                gate,
		Tree:                tree,
		ChunkSize:           cfg.Session.ChunkSize,
		SnapshotFallbackDir: cfg.Session.SnapshotDir,
	})

	var apiServer *api.Server
	serverDone := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, manager, cfg.Metrics.Enabled)
		go func() {
			serverDone <- apiServer.Start(ctx)
		}()
		logger.Info("API server configured", "address", cfg.API.Address)
	} else {
		logger.Info("API server disabled")
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	apiAlreadyStopped := false
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	case err := <-serverDone:
		signal.Stop(sigChan)
		apiAlreadyStopped = true
		if err != nil {
			logger.Error("API server error", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	cancel()
	if apiServer != nil && !apiAlreadyStopped {
		if err := <-serverDone; err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
	}

	result, err := manager.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error("Session manager shutdown error", "error", err)
		return err
	}
	logger.Info("Server stopped", "live_incarnations", result.LiveSessionsCount)

	return nil
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("sessionfsd is already running (PID %d)\nUse 'sessionfsd stop' to stop the running instance", pid)
					}
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("sessionfsd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'sessionfsd stop' to stop the server")
	fmt.Println("Use 'sessionfsd status' to check server status")

	return nil
}
