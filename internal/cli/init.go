package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize FilePulse configuration",
	Long: `Initialize FilePulse configuration in your home directory.

This command creates the necessary configuration files and directories
for FilePulse to operate. It will create:
- ~/.filepulse/config.yaml - Main configuration file
- ~/.filepulse/logs/ - Directory for log files`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	out := cmd.OutOrStdout()

	configPath := cfgFile
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	dir := filepath.Dir(configPath)

	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0700); err != nil {
		return fmt.Errorf("failed to create FilePulse directory: %w", err)
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s. Use --force to overwrite", configPath)
	}

	configData, err := yaml.Marshal(defaultSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(configPath, configData, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(out, "✅ FilePulse initialized successfully!\n")
	fmt.Fprintf(out, "📁 Configuration directory: %s\n", dir)
	fmt.Fprintf(out, "📝 Configuration file: %s\n", configPath)
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Next steps:\n")
	fmt.Fprintf(out, "1. Run 'filepulse watch /path/to/folder --ext txt,go' to start recording\n")
	fmt.Fprintf(out, "2. Run 'filepulse query recent' to see what was saved\n")

	return nil
}
