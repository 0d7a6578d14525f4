package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SkyrocketScreener/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_EmptyHistory(t *testing.T) {
	r := openTestRecorder(t)
	_, err := r.LastRun(5)
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestSQLiteRecorder_RecordAndLoad(t *testing.T) {
	r := openTestRecorder(t)
	started := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

	older := &Run{StartedAt: started.Add(-24 * time.Hour), Timeframe: model.Timeframe3Days}
	require.NoError(t, r.RecordRun(older))
	assert.NotEmpty(t, older.ID, "id assigned")

	run := &Run{
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Timeframe: model.Timeframe24Hours,
		MinPrice:  0.1,
		MaxPrice:  4,
		Universe:  3,
		Artifact:  "skyrocket_candidates_24_hours.csv",
		Candidates: []model.Candidate{
			{Ticker: "SNDL", Score: 70, Criteria: []string{"VolumeSurge", "RSI Overbought (72.0)"},
				Bundle: model.Bundle{CurrentPrice: null.FloatFrom(1.25), RSI: null.FloatFrom(72), VolumeSurge: true}},
			{Ticker: "AMC", Score: 30, Criteria: []string{"Breakout"},
				Bundle: model.Bundle{CurrentPrice: null.FloatFrom(3.5), Breakout: true}},
		},
	}
	require.NoError(t, r.RecordRun(run))

	got, err := r.LastRun(1)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, model.Timeframe24Hours, got.Timeframe)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 3, got.Universe)
	assert.Equal(t, run.Artifact, got.Artifact)
	require.Len(t, got.Candidates, 1)

	top := got.Candidates[0]
	assert.Equal(t, "SNDL", top.Ticker)
	assert.Equal(t, 70, top.Score)
	assert.Equal(t, []string{"VolumeSurge", "RSI Overbought (72.0)"}, top.Criteria)
	assert.Equal(t, 72.0, top.Bundle.RSI.Float64)
	assert.True(t, top.Bundle.VolumeSurge)
	assert.False(t, top.Bundle.ATRPercent.Valid, "absent stays absent")

	all, err := r.LastRun(10)
	require.NoError(t, err)
	assert.Len(t, all.Candidates, 2)
}

func TestNoopRecorder(t *testing.T) {
	r := NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&Run{}))
	_, err := r.LastRun(1)
	assert.ErrorIs(t, err, ErrNoRuns)
	assert.NoError(t, r.Close())
}
