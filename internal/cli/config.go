package cli

import (
	"fmt"

	"github.com/filepulse/filepulse/internal/store"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage FilePulse configuration",
	Long:  `View and modify FilePulse configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}

func configFilePath() string {
	if f := viper.ConfigFileUsed(); f != "" {
		return f
	}
	if cfgFile != "" {
		return cfgFile
	}
	return defaultConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📋 FilePulse Configuration\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")
	fmt.Fprintf(out, "📁 Config File: %s\n\n", configFilePath())

	settings := viper.AllSettings()
	delete(settings, "verbose")

	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprintln(out, string(yamlData))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	if err := validateSetting(key, value); err != nil {
		return err
	}

	viper.Set(key, value)

	// Write config to file
	if err := viper.WriteConfigAs(configFilePath()); err != nil {
		return errors.NewConfigError("failed to write configuration", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration updated\n")
	fmt.Fprintf(cmd.OutOrStdout(), "   %s = %s\n", key, value)

	return nil
}

// validateSetting rejects values that would make later commands fail
func validateSetting(key, value string) error {
	switch key {
	case keyStoreDriver:
		if _, err := store.ParseDriver(value); err != nil {
			return err
		}
	case keyWatchAutosave:
		if _, err := parseAutosave(value); err != nil {
			return err
		}
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !viper.IsSet(key) {
		return errors.NewConfigError(fmt.Sprintf("configuration key '%s' not found", key), nil)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%v\n", viper.Get(key))
	return nil
}
