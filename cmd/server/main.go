package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nickyhof/CommitView"
	"github.com/nickyhof/CommitView/config"
	"github.com/nickyhof/CommitView/core"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configPath  string
	addr        string
	metricsAddr string
	engineKind  string
	layoutsDir  string
	gitURL      string
	dataPath    string
	dataIndex   string
	tlsCert     string
	tlsKey      string

	rootCmd = &cobra.Command{
		Use:          "commitview-server",
		Short:        "Serve CommitView viewer sessions over TCP",
		Version:      Version,
		SilenceUsage: true,
		RunE:         runServer,
	}
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&addr, "addr", "", "TCP address to listen on (default :3306)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "HTTP address serving /metrics")
	flags.StringVar(&engineKind, "engine", "", "Table engine: memory or duckdb")
	flags.StringVar(&layoutsDir, "layouts-dir", "", "Directory of the layout repository (memory if empty)")
	flags.StringVar(&gitURL, "git-url", "", "Git URL the layout repository is cloned from")
	flags.StringVar(&dataPath, "data", "", "Dataset loaded at startup (file, http(s) or s3 URL)")
	flags.StringVar(&dataIndex, "index", "", "Primary key column of the startup dataset")
	flags.StringVar(&tlsCert, "tls-cert", "", "TLS certificate file")
	flags.StringVar(&tlsKey, "tls-key", "", "TLS key file")
}

// loadConfig reads the configuration file and environment, then applies
// the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	overrides := map[string]*string{
		"addr":         &cfg.Server.Addr,
		"metrics-addr": &cfg.Server.MetricsAddr,
		"engine":       &cfg.Engine.Kind,
		"layouts-dir":  &cfg.Layouts.Dir,
		"git-url":      &cfg.Layouts.GitURL,
		"data":         &cfg.Data.Path,
		"index":        &cfg.Data.Index,
		"tls-cert":     &cfg.Server.TLSCert,
		"tls-key":      &cfg.Server.TLSKey,
	}
	for name, field := range overrides {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetString(name)
		}
	}
	return cfg, cfg.Validate()
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	instance, err := CommitView.OpenConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to open instance: %w", err)
	}
	defer instance.Close()
	logger := instance.Logger

	instance.Identity = core.Identity{
		Name:  "CommitView Server",
		Email: "server@commitview.local",
	}

	var server *Server
	if cfg.Auth.Enabled {
		server = NewServerWithAuth(instance, cfg.Auth)
	} else {
		server = NewServer(instance, instance.Identity)
	}
	defer server.Stop()

	if cfg.Data.Path != "" {
		if _, err := server.LoadData(cmd.Context(), cfg.Data.Path, cfg.Data.Index); err != nil {
			return fmt.Errorf("failed to load %s: %w", cfg.Data.Path, err)
		}
	}

	if cfg.Server.TLSCert != "" {
		err = server.StartTLS(cfg.Server.Addr, cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		err = server.Start(cfg.Server.Addr)
	}
	if err != nil {
		return err
	}
	if cfg.Server.MetricsAddr != "" {
		if err := server.StartMetrics(cfg.Server.MetricsAddr); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   CommitView Server v%-16s  ║\n", Version)
	fmt.Println("║   Git-backed Data Viewer Sessions     ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on %s\n", server.Addr())
	fmt.Println("Send JSON requests (one per line), 'quit' to disconnect")
	fmt.Println()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
