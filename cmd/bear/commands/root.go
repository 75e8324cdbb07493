// Package commands implements the bear CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/bear/database"
	"github.com/satishbabariya/bear/internal/config"
	"github.com/satishbabariya/bear/internal/debug"
	"github.com/satishbabariya/bear/internal/version"
)

// app carries the global flags shared by every command.
type app struct {
	configFile string
	debug      bool
	cfg        *config.Config
}

// NewRootCommand builds the bear command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bear",
		Short:         "SQL query builder and schema tool",
		Long:          "bear compiles queries for MySQL, PostgreSQL and SQLite and inspects live database schemas.",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(a.debug)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default .bear.yaml in ., $HOME or $HOME/.config/bear)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(newSQLCommand(a))
	root.AddCommand(newSchemaCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(newVersionCommand())

	return root
}

// config loads the configuration once per invocation.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		debug.Debug("loaded config", "file", cfg.File)
	}
	a.cfg = cfg
	return cfg, nil
}

// connect opens and pings the configured database.
func (a *app) connect(ctx context.Context) (*database.Connection, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	dbCfg, err := cfg.DatabaseConfig()
	if err != nil {
		return nil, err
	}
	conn, err := database.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	return conn, nil
}
