package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// logsCmd represents the logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View FilePulse logs",
	Long: `Display FilePulse operation logs including watch sessions, saves,
and errors.`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().Int("tail", 20, "Number of lines to display")
	logsCmd.Flags().Bool("follow", false, "Follow log output (like tail -f)")
	logsCmd.Flags().String("level", "", "Filter by minimum log level (debug, info, warn, error)")
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// lineLevel extracts the level of a console or JSON encoded log line
func lineLevel(line string) (zapcore.Level, bool) {
	var text string
	if strings.HasPrefix(line, "{") {
		var entry struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return zapcore.InfoLevel, false
		}
		text = entry.Level
	} else {
		fields := strings.SplitN(ansiEscape.ReplaceAllString(line, ""), "\t", 3)
		if len(fields) < 2 {
			return zapcore.InfoLevel, false
		}
		text = fields[1]
	}

	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(text)))
	if err != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}

// levelFilter returns a predicate keeping lines at or above min
func levelFilter(min string) (func(string) bool, error) {
	if min == "" {
		return func(string) bool { return true }, nil
	}
	minLevel, err := zapcore.ParseLevel(strings.ToLower(min))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", min, err)
	}
	return func(line string) bool {
		level, ok := lineLevel(line)
		return ok && level >= minLevel
	}, nil
}

// tailLines returns the last n lines of r accepted by keep
func tailLines(r io.Reader, n int, keep func(string) bool) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !keep(line) {
			continue
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, line)
	}
	return ring, scanner.Err()
}

func runLogs(cmd *cobra.Command, args []string) error {
	tail, _ := cmd.Flags().GetInt("tail")
	follow, _ := cmd.Flags().GetBool("follow")
	level, _ := cmd.Flags().GetString("level")
	out := cmd.OutOrStdout()

	keep, err := levelFilter(level)
	if err != nil {
		return err
	}

	logPath := viper.GetString(keyLogFile)
	if logPath == "" {
		logPath = logConfigFrom(viper.GetViper()).OutputPath
	}

	// Header
	fmt.Fprintf(out, "📜 FilePulse Logs\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n")
	fmt.Fprintf(out, "📁 File: %s\n", logPath)
	if level != "" {
		fmt.Fprintf(out, "🔍 Filter: %s level and above\n", level)
	}
	fmt.Fprintf(out, "📏 Showing last %d lines\n", tail)
	if follow {
		fmt.Fprintf(out, "👁️  Following mode enabled (Ctrl+C to stop)\n")
	}
	fmt.Fprintf(out, "\n")

	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(out, "No log entries yet\n")
			return nil
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	lines, err := tailLines(f, tail, keep)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return followLog(ctx, f, out, keep)
}

// followLog prints lines appended to f until ctx is done
func followLog(ctx context.Context, f *os.File, out io.Writer, keep func(string) bool) error {
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var partial string
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			line = strings.TrimRight(partial+line, "\n")
			partial = ""
			if keep(line) {
				fmt.Fprintln(out, line)
			}
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("failed to follow log file: %w", err)
		}
		partial += line

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
