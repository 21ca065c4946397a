// Package export writes query results to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/filepulse/filepulse/pkg/models"
)

// Header is the column row written before the records
var Header = []string{"File Name", "Extension", "Path", "Activity", "Date Time"}

// WriteCSV writes a "Query: <info>" line, a blank line, the header and one
// row per record.
func WriteCSV(w io.Writer, queryInfo string, records []models.EventRecord) error {
	if _, err := fmt.Fprintf(w, "Query: %s\n\n", queryInfo); err != nil {
		return fmt.Errorf("failed to write query line: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.FileName,
			r.FileExtension,
			r.FilePath,
			r.Kind.String(),
			r.OccurredAt.Format(models.DateTimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.FilePath, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFile writes the CSV to path, creating parent directories
func ExportFile(path, queryInfo string, records []models.EventRecord) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return WriteCSV(f, queryInfo, records)
}
