package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/pkg/errors"
	pplogger "github.com/filepulse/filepulse/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup [path]",
	Short: "Copy the event database to a file",
	Long: `Write a consistent copy of the event database to path. The copy can be
opened with --config pointing store.path at it.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
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

	if err := backupStore(eventStore, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "💾 Backed up %d events to %s\n", count, args[0])
	return nil
}

// backupStore copies s to path, refusing to overwrite an existing file
func backupStore(s interfaces.EventStore, path string) error {
	b, ok := s.(interfaces.Backupper)
	if !ok {
		return errors.NewUsageError("the configured store does not support backups", nil)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(abs); err == nil {
		return errors.NewUsageError(fmt.Sprintf("backup target already exists: %s", abs), nil)
	}

	if err := b.Backup(abs); err != nil {
		return err
	}
	pplogger.Info("Event store backed up", zap.String("path", abs))
	return nil
}
