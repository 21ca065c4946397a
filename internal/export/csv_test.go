package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filepulse/filepulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.EventRecord {
	return []models.EventRecord{
		models.NewEventRecord(models.EventCreated, "/d/a.txt", time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)),
		models.NewEventRecord(models.EventDeleted, "/d/report, final.doc", time.Date(2024, 1, 2, 11, 0, 0, 0, time.Local)),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, "Recent 10 events", sampleRecords()))

	want := "Query: Recent 10 events\n" +
		"\n" +
		"File Name,Extension,Path,Activity,Date Time\n" +
		"a.txt,txt,/d/a.txt,Created,2024-01-01 10:00:00\n" +
		"\"report, final.doc\",doc,\"/d/report, final.doc\",Deleted,2024-01-02 11:00:00\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, "All events", nil))

	assert.Equal(t, "Query: All events\n\nFile Name,Extension,Path,Activity,Date Time\n", buf.String())
}

func TestExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.csv")
	require.NoError(t, ExportFile(path, "Events by type Created", sampleRecords()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Query: Events by type Created\n")
	assert.Contains(t, string(data), "a.txt,txt,/d/a.txt,Created,2024-01-01 10:00:00\n")
}
