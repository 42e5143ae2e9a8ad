package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"invoiceagent/internal/config"
	"invoiceagent/internal/logger"
)

var version = "1.0.0"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "invoiceagent",
	Short: "Parse, validate and post X12 810 invoices",
	Long: `invoiceagent turns inbound X12 810 EDI invoices into canonical JSON documents,
checks them against the business rules an invoice must satisfy, and posts the
accepted ones to the ERP as vendor bills.

Rejected invoices are written to the rejects directory together with an
explanation of what to fix. Every outcome is recorded in a local history.

Configuration is read from the environment (a .env file is loaded when present)
and optionally from a YAML file passed with --config.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		var quiet *exitError
		if !errors.As(err, &quiet) {
			log.Error().
				Err(err).
				Msg("Command execution failed")
			fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Setup(loaded.GetLoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = loaded

	log := logger.WithComponent("cmd")
	log.Debug().
		Str("command", cmd.Name()).
		Str("config_file", viper.ConfigFileUsed()).
		Msg("Configuration loaded")
	return nil
}

// exitError signals a non-zero exit whose cause was already reported.
type exitError struct {
	msg string
}

func (e *exitError) Error() string {
	return e.msg
}
