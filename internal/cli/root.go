// Package cli implements the command-line interface for FilePulse
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/internal/store"
	"github.com/filepulse/filepulse/pkg/errors"
	pplogger "github.com/filepulse/filepulse/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile     string
	verboseMode bool
	configErr   error
	version     = "dev"
	buildDate   = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "filepulse",
	Short: "FilePulse - a record of everything that happens in a folder",
	Long: `FilePulse watches a directory for files being created, modified and
deleted, keeps the detected events in memory and saves them to a local
database on demand or on an autosave interval.

Saved history can be queried by recency, extension, activity type or date
and exported to CSV.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, bd string) {
	version = v
	buildDate = bd
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildDate)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.filepulse/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add all subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(backupCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configErr = nil
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search config in ~/.filepulse, then /etc/filepulse
		viper.AddConfigPath(homeDir())
		viper.AddConfigPath("/etc/filepulse/")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Set environment variable prefix; FILEPULSE_STORE_DRIVER maps to store.driver
	viper.SetEnvPrefix("FILEPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit --config must exist; the default location may not
		if cfgFile != "" || !stderrors.As(err, &notFound) {
			configErr = errors.NewConfigError("failed to read configuration", err)
		}
	}
}

// setupLogging configures the global logger from the loaded configuration
func setupLogging(cmd *cobra.Command, args []string) error {
	// init is what creates a missing config file
	if configErr != nil && cmd != initCmd {
		return configErr
	}

	cfg := logConfigFrom(viper.GetViper())
	if verboseMode {
		cfg.Level = "debug"
		cfg.Development = true
	}

	if err := pplogger.Initialize(cfg); err != nil {
		return errors.NewConfigError("failed to initialize logger", err)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		pplogger.Debug("Using config file", zap.String("file", used))
	}
	return nil
}

// openStore opens the configured event store
func openStore(ctx context.Context) (interfaces.EventStore, error) {
	driver, err := store.ParseDriver(viper.GetString(keyStoreDriver))
	if err != nil {
		return nil, err
	}

	return store.Open(ctx, store.Config{
		Driver:   driver,
		Path:     viper.GetString(keyStorePath),
		Location: time.Local,
		Logger:   pplogger.Get(),
	})
}

// storePath returns the configured or derived database path
func storePath() string {
	if p := viper.GetString(keyStorePath); p != "" {
		return p
	}
	driver, err := store.ParseDriver(viper.GetString(keyStoreDriver))
	if err != nil {
		driver = store.SQLite
	}
	return store.DefaultPath(driver)
}
