package validate

import (
	"testing"
	"time"

	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	good := models.NewEventRecord(models.EventCreated, "/d/a.txt", time.Now())

	require.NoError(t, Batch(nil))
	require.NoError(t, Batch([]models.EventRecord{good}))

	noPath := good
	noPath.FilePath = ""
	err := Batch([]models.EventRecord{good, noPath})
	assert.True(t, errors.IsValidationError(err))

	badKind := good
	badKind.Kind = "Renamed"
	err = Batch([]models.EventRecord{badKind})
	assert.True(t, errors.IsValidationError(err))
}

func TestLimit(t *testing.T) {
	assert.NoError(t, Limit(1))
	assert.True(t, errors.IsQueryError(Limit(0)))
	assert.True(t, errors.IsQueryError(Limit(-5)))
}

func TestExtension(t *testing.T) {
	ext, err := Extension(".JAVA")
	require.NoError(t, err)
	assert.Equal(t, "java", ext)

	for _, in := range []string{"", ".", "  "} {
		_, err := Extension(in)
		assert.True(t, errors.IsQueryError(err), "input %q", in)
	}
}

func TestKinds(t *testing.T) {
	names, err := Kinds([]models.EventKind{models.EventDeleted, models.EventCreated, models.EventDeleted})
	require.NoError(t, err)
	assert.Equal(t, []string{"Deleted", "Created"}, names)

	_, err = Kinds(nil)
	assert.True(t, errors.IsQueryError(err))

	_, err = Kinds([]models.EventKind{"Moved"})
	assert.True(t, errors.IsQueryError(err))
}
