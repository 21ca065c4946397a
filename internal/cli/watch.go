package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/internal/watchers"
	"github.com/filepulse/filepulse/internal/watchers/bus"
	"github.com/filepulse/filepulse/pkg/errors"
	pplogger "github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/filepulse/filepulse/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// watchCmd represents the watch command (main monitoring command)
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and record file activity",
	Long: `Start monitoring a local directory for files being created, modified
and deleted.

Detected events are printed as they happen and kept in memory. They are
saved to the database when the watch stops and, when --autosave is set,
periodically while it runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSlice("ext", nil, "Extensions to record (e.g. txt,go); empty records everything")
	watchCmd.Flags().StringSlice("ignore", nil, "Name patterns to ignore (glob style)")
	watchCmd.Flags().String("ignore-file", "", "Path to ignore file (defaults to .filepulseignore or .gitignore)")
	watchCmd.Flags().Duration("autosave", 0, "Save pending events at this interval (e.g. 30s, 5m); 0 saves only on exit")
	watchCmd.Flags().Bool("quiet", false, "Do not print events as they are detected")
	watchCmd.Flags().Duration("status", 30*time.Second, "Interval between status lines; 0 disables")
}

// parseAutosave accepts a duration string; bare numbers are seconds
func parseAutosave(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := utils.ParseDuration(s)
	if err != nil {
		return 0, errors.NewConfigError(fmt.Sprintf("invalid autosave interval %q", s), err)
	}
	if d < 0 {
		return 0, errors.NewConfigError(fmt.Sprintf("autosave interval must not be negative: %s", s), nil)
	}
	return d, nil
}

// findIgnoreFile looks for .filepulseignore then .gitignore in root
func findIgnoreFile(root string) string {
	for _, name := range []string{".filepulseignore", ".gitignore"} {
		candidate := filepath.Join(root, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	extensions, _ := cmd.Flags().GetStringSlice("ext")
	if !cmd.Flags().Changed("ext") {
		extensions = viper.GetStringSlice(keyWatchExtensions)
	}
	ignorePatterns, _ := cmd.Flags().GetStringSlice("ignore")
	ignorePatterns = append(viper.GetStringSlice(keyWatchIgnore), ignorePatterns...)

	ignoreFile, _ := cmd.Flags().GetString("ignore-file")
	if ignoreFile == "" {
		ignoreFile = viper.GetString(keyWatchIgnoreFile)
	}

	autosave, _ := cmd.Flags().GetDuration("autosave")
	if !cmd.Flags().Changed("autosave") {
		d, err := parseAutosave(viper.GetString(keyWatchAutosave))
		if err != nil {
			return err
		}
		autosave = d
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	statusEvery, _ := cmd.Flags().GetDuration("status")

	// Get absolute path
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return errors.NewWatchInitError("path does not exist", err)
	}
	if !info.IsDir() {
		return errors.NewWatchInitError(fmt.Sprintf("path is not a directory: %s", absPath), nil)
	}

	if ignoreFile == "" {
		ignoreFile = findIgnoreFile(absPath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	zapLogger := pplogger.Get()
	monitor, err := watchers.NewMonitor(eventStore, watchers.MonitorConfig{
		Extensions:       extensions,
		IgnorePatterns:   ignorePatterns,
		IgnoreFile:       ignoreFile,
		AutosaveInterval: autosave,
		Logger:           zapLogger,
	})
	if err != nil {
		return err
	}

	if !quiet {
		monitor.Subscribe(eventPrinter(out))
	}

	if err := monitor.Start(ctx, absPath); err != nil {
		return err
	}

	session := monitor.Session()

	// Display startup information
	fmt.Fprintf(out, "🚀 Starting FilePulse Monitor\n")
	fmt.Fprintf(out, "📁 Local Path: %s\n", absPath)
	if len(session.Extensions) > 0 {
		fmt.Fprintf(out, "🧩 Extensions: %v\n", session.Extensions)
	} else {
		fmt.Fprintf(out, "🧩 Extensions: all\n")
	}
	if autosave > 0 {
		fmt.Fprintf(out, "💾 Autosave: every %s\n", autosave)
	} else {
		fmt.Fprintf(out, "💾 Autosave: on exit\n")
	}
	if ignoreFile != "" {
		fmt.Fprintf(out, "📝 Using ignore file: %s\n", ignoreFile)
	}
	if len(ignorePatterns) > 0 {
		fmt.Fprintf(out, "🚫 Ignore Patterns: %v\n", ignorePatterns)
	}
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "💓 FilePulse is monitoring... Press Ctrl+C to stop\n\n")

	var statusC <-chan time.Time
	if statusEvery > 0 {
		ticker := time.NewTicker(statusEvery)
		defer ticker.Stop()
		statusC = ticker.C
	}

	// Main monitoring loop
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-statusC:
			printWatchStatus(ctx, out, monitor.Stats)
		}
	}

	fmt.Fprintf(out, "\n[%s] 🛑 Stopping FilePulse monitor after %s...\n",
		time.Now().Format(models.TimeLayout), utils.FormatDuration(session.Uptime()))

	if err := monitor.Stop(); err != nil {
		zapLogger.Warn("Failed to stop monitor cleanly", zap.Error(err))
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	saved, err := monitor.Save(saveCtx)
	if err != nil {
		fmt.Fprintf(out, "❌ Failed to save %d pending events\n", len(monitor.Pending()))
		return err
	}

	fmt.Fprintf(out, "✅ Saved %d events\n", saved)
	return nil
}

// printWatchStatus prints the pending count and when events were last saved
func printWatchStatus(ctx context.Context, out io.Writer, stats func(context.Context) (interfaces.Stats, error)) {
	st, err := stats(ctx)
	if err != nil {
		pplogger.Warn("Failed to read monitor stats", zap.Error(err))
	}
	if st.Pending == 0 {
		return
	}

	lastSaved := "never"
	if !st.LastSaved.IsZero() {
		lastSaved = st.LastSaved.Format(models.TimeLayout)
	}
	fmt.Fprintf(out, "[%s] 📊 Status: %d events pending save, last saved %s\n",
		time.Now().Format(models.TimeLayout), st.Pending, lastSaved)
}

// eventPrinter prints every detected event on one line
func eventPrinter(out io.Writer) bus.SubscriberFunc {
	return func(e models.EventRecord) {
		path := utils.ShortenPath(e.FilePath)
		var detail string
		switch e.Kind {
		case models.EventCreated:
			detail = fmt.Sprintf("➕ Created: %s", path)
		case models.EventModified:
			detail = fmt.Sprintf("✏️  Modified: %s", path)
		case models.EventDeleted:
			detail = fmt.Sprintf("🗑️  Deleted: %s", path)
		default:
			detail = fmt.Sprintf("❓ Changed: %s", path)
		}
		fmt.Fprintf(out, "[%s] 📄 %s\n", e.OccurredAt.Format(models.TimeLayout), detail)
	}
}
