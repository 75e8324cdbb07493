package commands

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/bear/internal/config"
	"github.com/satishbabariya/bear/internal/ui"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the bear configuration",
	}
	cmd.AddCommand(newConfigShowCommand(a))
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Password != "" {
				shown.Password = "********"
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(shown)
			}

			if shown.File != "" {
				ui.PrintInfo("Config file: %s", shown.File)
			} else {
				ui.PrintInfo("No config file found, using defaults and environment")
			}
			return ui.PrintTable([]string{"Key", "Value"}, [][]string{
				{"driver", shown.Driver},
				{"dsn", shown.DSN},
				{"host", shown.Host},
				{"port", strconv.Itoa(shown.Port)},
				{"user", shown.User},
				{"password", shown.Password},
				{"database", shown.Database},
				{"pool.max_open", strconv.Itoa(shown.MaxOpenConns)},
				{"pool.max_idle", strconv.Itoa(shown.MaxIdleConns)},
				{"pool.max_lifetime", shown.ConnMaxLifetime.String()},
				{"auto_quote", strconv.FormatBool(shown.AutoQuote)},
				{"log_queries", strconv.FormatBool(shown.LogQueries)},
				{"retry.attempts", strconv.Itoa(shown.RetryAttempts)},
				{"retry.delay", shown.RetryDelay.String()},
				{"telemetry", shown.Telemetry},
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path  string
		force bool
		cfg   config.Config
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long:  "Writes a config file. Settings not given as flags are asked for interactively.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			exists, err := afero.Exists(config.AppFs, path)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			}

			if !cmd.Flags().Changed("driver") {
				prompt := &survey.Select{
					Message: "Database engine:",
					Options: []string{"sqlite", "mysql", "postgres"},
					Default: "sqlite",
				}
				if err := survey.AskOne(prompt, &cfg.Driver); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("dsn") && !cmd.Flags().Changed("database") {
				message := "Database name:"
				if cfg.Driver == "sqlite" {
					message = "Database file:"
				}
				if err := survey.AskOne(&survey.Input{Message: message}, &cfg.Database, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}

			if err := config.Save(&cfg, path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			ui.PrintSuccess("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "file to write (default $HOME/.config/bear/.bear.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&cfg.Driver, "driver", "sqlite", "mysql, postgres or sqlite")
	cmd.Flags().StringVar(&cfg.DSN, "dsn", "", "data source name")
	cmd.Flags().StringVar(&cfg.Host, "host", "", "database host")
	cmd.Flags().IntVar(&cfg.Port, "port", 0, "database port")
	cmd.Flags().StringVar(&cfg.User, "user", "", "database user")
	cmd.Flags().StringVar(&cfg.Database, "database", "", "database name or sqlite file")
	cmd.Flags().BoolVar(&cfg.AutoQuote, "auto-quote", false, "quote identifiers")
	cmd.Flags().StringVar(&cfg.Telemetry, "telemetry", "noop", "noop or memory")
	return cmd
}
