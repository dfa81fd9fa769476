package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jsphweid/fretcoach/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadReport(t *testing.T) {
	assert := assert.New(t)
	dir := filepath.Join(t.TempDir(), "reports")
	r := model.ScoreReport{
		SessionID:       "abc",
		Title:           "Smoke on the Water",
		AccuracyPercent: 92.5,
		Grade:           "A",
		StartedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	path, err := WriteReport(dir, r)
	require.NoError(t, err)
	assert.Equal(filepath.Join(dir, "abc.json"), path)

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(r, got)

	paths, err := ListReports(dir)
	require.NoError(t, err)
	assert.Equal([]string{path}, paths)
}

func TestWriteReportNeedsID(t *testing.T) {
	_, err := WriteReport(t.TempDir(), model.ScoreReport{})
	assert.Error(t, err)
}

func TestListReportsMissingDir(t *testing.T) {
	paths, err := ListReports(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Empty(t, paths)
}

func TestReadTimeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riff.json")
	js := `{"notes":[{"time_ms":0,"midi":40,"note_name":"E2"},{"time_ms":500,"midi":43}],"duration_ms":1000}`
	require.NoError(t, os.WriteFile(path, []byte(js), 0o644))

	tl, err := ReadTimeline(path)
	require.NoError(t, err)
	require.Len(t, tl.Notes, 2)
	assert.Equal(t, 43, tl.Notes[1].Midi)
	assert.Equal(t, 1000.0, tl.DurationMs)
}

func TestReadDetectedNotes(t *testing.T) {
	assert := assert.New(t)
	in := "# take 1\n0 E2\n\n500.5 G2\n1000 Bb2\n"
	events, err := ReadDetectedNotes(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(500.5, events[1].TimestampMs)
	assert.Equal(model.NoteIdentity{Name: "A#", Octave: 2}, events[2].Note)
}

func TestReadDetectedNotesReportsLine(t *testing.T) {
	_, err := ReadDetectedNotes(strings.NewReader("0 E2\n10 H2\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadDetectedNotes(strings.NewReader("E2\n"))
	assert.ErrorContains(t, err, "line 1")
}
