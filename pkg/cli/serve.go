package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockman/pkg/config"
	"github.com/getmockd/mockman/pkg/instance"
	"github.com/getmockd/mockman/pkg/logging"
	"github.com/getmockd/mockman/pkg/restapi"
)

// stopTimeout bounds how long serve waits for the manager and the
// control-plane adapter to drain in-flight requests on shutdown.
const stopTimeout = 10 * time.Second

type serveFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	controlAddr string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bring up mock server instances from a configuration document and serve the control-plane API",
	Long: `serve loads a startup configuration document (JsonMC by default, YAML if the
file extension is .yaml or .yml), creates one mock server instance per
declared server, and serves a control-plane REST API for managing
instances and their expectations at runtime.`,
	Example: `  mockman serve --config ./servers.jsonmc
  mockman serve -c ./servers.yaml --log-level debug --control-addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configPath, "config", "c", defaultConfigPath(), "Path to the startup configuration document (JsonMC or YAML)")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
	serveCmd.Flags().StringVar(&f.controlAddr, "control-addr", restapi.DefaultAddr, "Bind address for the control-plane REST API")
	rootCmd.AddCommand(serveCmd)

	// serve is the implicit default: "mockman" with no subcommand runs it,
	// flags and all, since these are the same flags serveCmd registers.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.RunE = runServe
}

// defaultConfigPath realizes the mock.server.config.file property via the
// MOCKMAN_CONFIG environment variable, falling back to an empty string
// (serve then starts with zero instances and only the control-plane API up).
func defaultConfigPath() string {
	return os.Getenv("MOCKMAN_CONFIG")
}

func runServe(_ *cobra.Command, _ []string) error {
	f := &serveFlagVals
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(f.logLevel),
		Format: logging.ParseFormat(f.logFormat),
	})

	if f.configPath != "" {
		if _, err := os.Stat(f.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", f.configPath)
		}
	}

	mgr := instance.NewManager(instance.WithLogger(log.With("component", "manager")))

	instanceCount := 0
	if f.configPath != "" {
		doc, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := config.Apply(doc, mgr); err != nil {
			log.Warn("some servers failed to start", "error", err)
		}
		instanceCount = len(doc.Servers)
	}

	api := restapi.NewServer(mgr, f.controlAddr, restapi.WithLogger(log.With("component", "restapi")))
	if err := api.Start(); err != nil {
		return fmt.Errorf("failed to start control-plane API: %w", err)
	}

	log.Info("mockman started", "config", f.configPath, "servers", instanceCount, "controlAddr", f.controlAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Warn("control-plane API shutdown error", "error", err)
	}
	if err := mgr.Shutdown(); err != nil {
		log.Warn("manager shutdown error", "error", err)
	}
	return nil
}
