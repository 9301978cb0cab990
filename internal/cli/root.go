// Package cli wires the erpmon commands together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rusenback/erpmon/internal/config"
	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/docker"
	"github.com/rusenback/erpmon/internal/logging"
	"github.com/rusenback/erpmon/internal/storage"
	"github.com/rusenback/erpmon/internal/tui"
)

const version = "0.2.0"

// app carries the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "erpmon",
		Short: "Container resource and network failure monitor",
		Long: `erpmon watches container resource usage on Linux and Windows hosts
and explains container network failures from deployment output.

Run without arguments to open the interactive dashboard.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runTUI,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $HOME/.erpmon.yaml)")
	flags.String("host", "", "Docker engine address")
	flags.String("platform", "", "engine platform hint (linux, windows)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("docker.host", flags.Lookup("host"))
	_ = a.v.BindPFlag("platform", flags.Lookup("platform"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(a.newStatsCmd(), a.newWatchCmd(), a.newDiagnoseCmd())
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("erpmon version %s\n", version))
	return rootCmd
}

// init reads configuration and builds the logger. The dashboard owns the
// terminal, so it logs to a file in the data directory.
func (a *app) init(cmd *cobra.Command) error {
	config.SetDefaults(a.v)
	a.v.SetEnvPrefix("ERPMON")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigName(".erpmon")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	opts := logging.Options{Level: cfg.LogLevel, Development: cfg.LogDevelopment}
	if cmd.Name() == "erpmon" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		opts.OutputPath = filepath.Join(cfg.DataDir, "erpmon.log")
	}
	logger, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) connect() (*docker.Client, error) {
	client, err := docker.NewClient(a.cfg.Docker, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Docker at %s: %w", a.cfg.Docker.Host, err)
	}
	return client, nil
}

func (a *app) runTUI(cmd *cobra.Command, _ []string) error {
	client, err := a.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := storage.NewStorage(a.cfg.DataDir, a.cfg.Retention, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := tui.NewModel(ctx, client, tui.Options{
		Classifier:      diagnose.NewClassifier(a.cfg.Ports),
		Store:           store,
		RefreshInterval: a.cfg.RefreshInterval,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
