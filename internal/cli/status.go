package cli

import (
	"encoding/json"
	"fmt"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show FilePulse storage status",
	Long: `Display what FilePulse has recorded so far.

Shows information about:
- Number of saved events
- Saved events per activity type
- Database, configuration and log locations`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("detailed", false, "Show detailed status information")
	statusCmd.Flags().Bool("json", false, "Output status in JSON format")
}

type statusReport struct {
	interfaces.Stats
	Driver     string `json:"driver"`
	Database   string `json:"database"`
	ConfigFile string `json:"config_file"`
	LogFile    string `json:"log_file"`
	Version    string `json:"version"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	detailed, _ := cmd.Flags().GetBool("detailed")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	ctx := cmd.Context()
	eventStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	report := statusReport{
		Driver:     viper.GetString(keyStoreDriver),
		Database:   storePath(),
		ConfigFile: configFilePath(),
		LogFile:    logConfigFrom(viper.GetViper()).OutputPath,
		Version:    version,
	}

	if report.Stored, err = eventStore.Count(ctx); err != nil {
		return err
	}
	if report.ByKind, err = eventStore.CountByKind(ctx); err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	// Display status header
	fmt.Fprintf(out, "🎯 FilePulse Status\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")

	fmt.Fprintf(out, "📊 Saved Events\n")
	fmt.Fprintf(out, "──────────────\n")
	fmt.Fprintf(out, "  Total: %d\n", report.Stored)
	for _, kind := range models.AllEventKinds {
		fmt.Fprintf(out, "  %-9s %d\n", kind.String()+":", report.ByKind[kind])
	}
	fmt.Fprintf(out, "\n")

	if detailed {
		fmt.Fprintf(out, "🔧 System Information\n")
		fmt.Fprintf(out, "────────────────────\n")
		fmt.Fprintf(out, "  FilePulse Version: %s\n", version)
		fmt.Fprintf(out, "  Store Driver: %s\n", report.Driver)
		fmt.Fprintf(out, "  Database: %s\n", report.Database)
		fmt.Fprintf(out, "  Config File: %s\n", report.ConfigFile)
		fmt.Fprintf(out, "  Log File: %s\n", report.LogFile)
		fmt.Fprintf(out, "\n")
	}

	// Footer
	fmt.Fprintf(out, "═══════════════════════════════════════\n")
	if !detailed {
		fmt.Fprintf(out, "💡 Tip: Use 'filepulse status --detailed' for more information\n")
	}

	return nil
}
