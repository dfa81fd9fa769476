package sample

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jsphweid/fretcoach/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSliceEndsWithEOF(t *testing.T) {
	ctx := context.Background()
	src := FromSlice([]model.PitchSample{{FrequencyHz: 110, Confidence: 0.9}})

	s, err := src.NextSample(ctx)
	require.NoError(t, err)
	assert.Equal(t, 110.0, s.FrequencyHz)

	_, err = src.NextSample(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplaySkipsCommentsAndGarbage(t *testing.T) {
	assert := assert.New(t)
	in := strings.NewReader("# recorded A string\n110 0.95\n\nnot a number\n110.5\n1 2 3\n")
	r := NewReplay(in, 0)

	got, err := ReadAll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal([]model.PitchSample{
		{FrequencyHz: 110, Confidence: 0.95},
		{FrequencyHz: 110.5, Confidence: 1},
	}, got)
	assert.Equal(2, r.Skipped())
}

func TestReplayPacing(t *testing.T) {
	r := NewReplay(strings.NewReader("110 1\n110 1\n110 1\n"), 10*time.Millisecond)
	start := time.Now()
	_, err := ReadAll(context.Background(), r)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReplayHonoursCancel(t *testing.T) {
	r := NewReplay(strings.NewReader("110 1\n110 1\n"), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := r.NextSample(ctx)
	require.NoError(t, err)

	cancel()
	_, err = r.NextSample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nothing.txt"), 0)
	assert.ErrorIs(t, err, ErrAudioUnavailable)
}

func TestChanDropsOldestWhenFull(t *testing.T) {
	assert := assert.New(t)
	c := NewChan(2)
	assert.True(c.Push(model.PitchSample{FrequencyHz: 1}))
	assert.True(c.Push(model.PitchSample{FrequencyHz: 2}))
	assert.False(c.Push(model.PitchSample{FrequencyHz: 3}))
	c.Close()

	got, err := ReadAll(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(2.0, got[0].FrequencyHz)
	assert.Equal(3.0, got[1].FrequencyHz)
}

func TestChanCountsOnlyRealDrops(t *testing.T) {
	c := NewChan(1)
	got := make(chan []model.PitchSample)
	go func() {
		all, _ := ReadAll(context.Background(), c)
		got <- all
	}()

	const n = 5000
	drops := 0
	for i := 0; i < n; i++ {
		if !c.Push(model.PitchSample{FrequencyHz: float64(i + 1)}) {
			drops++
		}
	}
	c.Close()
	assert.Len(t, <-got, n-drops)
}

func TestChanResetAndCancel(t *testing.T) {
	c := NewChan(4)
	c.Push(model.PitchSample{FrequencyHz: 1})
	c.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.NextSample(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseLine(t *testing.T) {
	assert := assert.New(t)
	_, ok, err := ParseLine("  # comment")
	assert.False(ok)
	assert.NoError(err)

	s, ok, err := ParseLine("82.41\t0.5")
	assert.True(ok)
	assert.NoError(err)
	assert.Equal(model.PitchSample{FrequencyHz: 82.41, Confidence: 0.5}, s)

	_, _, err = ParseLine("82.41 high")
	assert.Error(err)
}
