package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/internal/export"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/filepulse/filepulse/pkg/utils"
	"github.com/spf13/cobra"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query saved file activity",
	Long: `Display saved file events, optionally exporting them to CSV.

Results are printed as a table. With --csv the same rows are written to a
file, preceded by a "Query:" line describing what was asked.`,
}

var queryAllCmd = &cobra.Command{
	Use:   "all",
	Short: "List every saved event in the order it was recorded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "All events", func(ctx context.Context, s interfaces.EventStore) ([]models.EventRecord, error) {
			return s.QueryAll(ctx)
		})
	},
}

var queryRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		info := fmt.Sprintf("Recent %d events", limit)
		return runQuery(cmd, info, func(ctx context.Context, s interfaces.EventStore) ([]models.EventRecord, error) {
			return s.QueryRecent(ctx, limit)
		})
	},
}

var queryExtCmd = &cobra.Command{
	Use:   "ext [extension]",
	Short: "List events for files with the given extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info := fmt.Sprintf("Events with extension %s", args[0])
		return runQuery(cmd, info, func(ctx context.Context, s interfaces.EventStore) ([]models.EventRecord, error) {
			return s.QueryByExtension(ctx, args[0])
		})
	},
}

var queryKindCmd = &cobra.Command{
	Use:   "kind [created|modified|deleted]...",
	Short: "List events of the given activity types",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds, err := parseKinds(args)
		if err != nil {
			return err
		}
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		info := fmt.Sprintf("Events by type %s", strings.Join(names, ", "))
		return runQuery(cmd, info, func(ctx context.Context, s interfaces.EventStore) ([]models.EventRecord, error) {
			return s.QueryByEventKind(ctx, kinds...)
		})
	},
}

var queryDateCmd = &cobra.Command{
	Use:   "date [YYYY-MM-DD]",
	Short: "List events recorded on a calendar date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := time.ParseInLocation(models.DateLayout, args[0], time.Local)
		if err != nil {
			return errors.NewQueryError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", args[0]), err)
		}
		info := fmt.Sprintf("Events on %s", day.Format(models.DateLayout))
		return runQuery(cmd, info, func(ctx context.Context, s interfaces.EventStore) ([]models.EventRecord, error) {
			return s.QueryByDate(ctx, day)
		})
	},
}

func init() {
	queryCmd.PersistentFlags().String("csv", "", "Also export the results to this CSV file")
	queryCmd.PersistentFlags().String("info", "", "Description written on the CSV Query line")
	queryRecentCmd.Flags().Int("limit", 10, "Number of events to show")

	queryCmd.AddCommand(queryAllCmd)
	queryCmd.AddCommand(queryRecentCmd)
	queryCmd.AddCommand(queryExtCmd)
	queryCmd.AddCommand(queryKindCmd)
	queryCmd.AddCommand(queryDateCmd)
}

// parseKinds parses activity names, accepting forms like CREATE or ENTRY_CREATE
func parseKinds(args []string) ([]models.EventKind, error) {
	var kinds []models.EventKind
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, err := models.ParseEventKind(part)
			if err != nil {
				return nil, errors.NewQueryError("invalid activity type", err)
			}
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, errors.NewQueryError("at least one activity type is required", nil)
	}
	return kinds, nil
}

type queryFunc func(ctx context.Context, s interfaces.EventStore) ([]models.EventRecord, error)

func runQuery(cmd *cobra.Command, info string, query queryFunc) error {
	csvPath, _ := cmd.Flags().GetString("csv")
	if custom, _ := cmd.Flags().GetString("info"); custom != "" {
		info = custom
	}

	ctx := cmd.Context()
	eventStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	records, err := query(ctx, eventStore)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📋 %s\n", info)
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")
	printEvents(out, records)

	if csvPath != "" {
		if err := export.ExportFile(csvPath, info, records); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n💾 Exported %d events to %s\n", len(records), csvPath)
	}

	return nil
}

// printEvents writes records as a table
func printEvents(out io.Writer, records []models.EventRecord) {
	if len(records) == 0 {
		fmt.Fprintf(out, "No events found\n")
		return
	}

	fmt.Fprintf(out, "%-30s %-10s %-10s %-20s %s\n", "Name", "Extension", "Activity", "Date Time", "Path")
	fmt.Fprintf(out, "%-30s %-10s %-10s %-20s %s\n", "────", "─────────", "────────", "─────────", "────")
	for _, e := range records {
		fmt.Fprintf(out, "%-30s %-10s %-10s %-20s %s\n",
			utils.TruncateString(e.FileName, 30),
			e.FileExtension,
			e.Kind,
			e.OccurredAt.Format(models.DateTimeLayout),
			e.FilePath,
		)
	}
	fmt.Fprintf(out, "\n📊 Total: %d events\n", len(records))
}
