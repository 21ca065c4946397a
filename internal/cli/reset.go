package cli

import (
	"bufio"
	"fmt"
	"strings"

	pplogger "github.com/filepulse/filepulse/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all saved file activity",
	Long:  `Remove every saved event from the database. This cannot be undone.`,
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	resetCmd.Flags().String("backup", "", "Copy the database to this file before deleting")
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	backupPath, _ := cmd.Flags().GetString("backup")
	out := cmd.OutOrStdout()

	if !yes {
		fmt.Fprintf(out, "⚠️  This will delete all saved events from %s. Continue? [y/N] ", storePath())
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintf(out, "Aborted\n")
			return nil
		}
	}

	ctx := cmd.Context()
	eventStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	count, err := eventStore.Count(ctx)
	if err != nil {
		return err
	}

	if backupPath != "" {
		if err := backupStore(eventStore, backupPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "💾 Backed up %d events to %s\n", count, backupPath)
	}

	if err := eventStore.Clear(ctx); err != nil {
		return err
	}

	pplogger.Info("Event history reset", zap.Int("deleted", count))
	fmt.Fprintf(out, "🗑️  Deleted %d events\n", count)
	return nil
}
