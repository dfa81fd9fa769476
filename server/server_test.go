package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jsphweid/fretcoach/config"
	"github.com/jsphweid/fretcoach/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	reports []model.ScoreReport
}

func (m *memoryStore) SaveReport(_ context.Context, r model.ScoreReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memoryStore) GetReport(_ context.Context, id string) (model.ScoreReport, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.SessionID == id {
			return r, true, nil
		}
	}
	return model.ScoreReport{}, false, nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

func newTestServer(t *testing.T) (*httptest.Server, *memoryStore) {
	cfg := config.Default()
	cfg.ReportDir = t.TempDir()
	cfg.StatusDebounceMs = 0
	cfg.TickMs = 5
	store := &memoryStore{}
	s := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), store)
	ts := httptest.NewServer(s.Handler([]string{"*"}))
	t.Cleanup(func() {
		s.Shutdown()
		ts.Close()
	})
	return ts, store
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestPresets(t *testing.T) {
	ts, _ := newTestServer(t)
	var presets []model.TuningPreset
	assert.Equal(t, http.StatusOK, call(t, ts, "GET", "/presets", nil, &presets))
	assert.NotEmpty(t, presets)
}

func TestTuningFlow(t *testing.T) {
	assert := assert.New(t)
	ts, _ := newTestServer(t)

	var state model.TuningStateResponse
	require.Equal(t, http.StatusOK, call(t, ts, "POST", "/tuning/start", model.StartTuningRequest{Preset: "standard"}, &state))
	assert.True(state.Running)
	assert.Len(state.Strings, 6)

	call(t, ts, "POST", "/tuning/advance", nil, &state)
	assert.Equal(1, state.Current)

	samples := make([]model.PitchSample, 50)
	for i := range samples {
		samples[i] = model.PitchSample{FrequencyHz: 110, Confidence: 1}
	}
	var accepted model.AcceptedResponse
	require.Equal(t, http.StatusAccepted, call(t, ts, "POST", "/tuning/samples", model.SamplesRequest{Samples: samples}, &accepted))
	assert.Equal(50, accepted.Accepted)

	assert.Eventually(func() bool {
		var s model.TuningStateResponse
		call(t, ts, "GET", "/tuning", nil, &s)
		return s.Update != nil && s.Update.Status == model.StatusInTune
	}, 2*time.Second, 10*time.Millisecond)

	call(t, ts, "POST", "/tuning/confirm", nil, &state)
	assert.Equal(2, state.Current)
	assert.True(state.Strings[1].Tuned)

	call(t, ts, "POST", "/tuning/stop", nil, &state)
	assert.False(state.Running)
	assert.Equal(http.StatusConflict, call(t, ts, "POST", "/tuning/samples", model.SamplesRequest{}, nil))
}

func TestUnknownPreset(t *testing.T) {
	ts, _ := newTestServer(t)
	var e model.ErrorResponse
	assert.Equal(t, http.StatusNotFound, call(t, ts, "POST", "/tuning/start", model.StartTuningRequest{Preset: "banjo"}, &e))
	assert.NotEmpty(t, e.Error)
}

func TestPracticeFlow(t *testing.T) {
	assert := assert.New(t)
	ts, store := newTestServer(t)

	assert.Equal(http.StatusConflict, call(t, ts, "POST", "/practice/notes", model.NotesRequest{}, nil))

	tl := model.Timeline{DurationMs: 60000}
	for i := 0; i < 3; i++ {
		tl.Notes = append(tl.Notes, model.ExpectedNote{TimeMs: float64(i) * 500, Midi: 40 + i})
	}
	var state model.PracticeStateResponse
	require.Equal(t, http.StatusOK, call(t, ts, "POST", "/practice/start", model.StartPracticeRequest{Title: "riff", Timeline: tl}, &state))
	assert.True(state.Running)
	assert.Equal(3, state.Snapshot.TotalNotes)

	at := func(ms float64) *float64 { return &ms }
	notes := model.NotesRequest{Notes: []model.PlayedNote{
		{Note: "E2", TimestampMs: at(10)},
		{Note: "F2", TimestampMs: at(500)},
		{Note: "F#2", TimestampMs: at(990)},
	}}
	var accepted model.AcceptedResponse
	require.Equal(t, http.StatusAccepted, call(t, ts, "POST", "/practice/notes", notes, &accepted))
	assert.Equal(3, accepted.Accepted)

	assert.Equal(http.StatusBadRequest, call(t, ts, "POST", "/practice/notes",
		model.NotesRequest{Notes: []model.PlayedNote{{Note: "X9"}}}, nil))

	assert.Eventually(func() bool {
		var s model.PracticeStateResponse
		call(t, ts, "GET", "/practice", nil, &s)
		return s.Snapshot.Correct == 3
	}, 2*time.Second, 10*time.Millisecond)

	var report model.ScoreReport
	require.Equal(t, http.StatusOK, call(t, ts, "POST", "/practice/stop", nil, &report))
	assert.Equal(100.0, report.AccuracyPercent)
	assert.Equal(3, report.MaxStreak)
	assert.Equal("riff", report.Title)
	require.Equal(t, 1, store.count())

	var again model.ScoreReport
	require.Equal(t, http.StatusOK, call(t, ts, "POST", "/practice/stop", nil, &again))
	assert.Equal(report, again)
	assert.Equal(1, store.count(), "report archived twice")

	var stored model.ScoreReport
	assert.Equal(http.StatusOK, call(t, ts, "GET", "/reports/"+report.SessionID, nil, &stored))
	assert.Equal(report.SessionID, stored.SessionID)
	assert.Equal(http.StatusNotFound, call(t, ts, "GET", "/reports/missing", nil, nil))
}

func TestReportFallsBackToArchive(t *testing.T) {
	assert := assert.New(t)
	ts, store := newTestServer(t)
	archived := model.ScoreReport{SessionID: "from-dynamo", Title: "old riff", Grade: "B"}
	require.NoError(t, store.SaveReport(context.Background(), archived))

	var got model.ScoreReport
	assert.Equal(http.StatusOK, call(t, ts, "GET", "/reports/from-dynamo", nil, &got))
	assert.Equal(archived, got)
}
