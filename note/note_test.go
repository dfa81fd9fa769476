package note

import (
	"fmt"
	"math"
	"testing"

	"github.com/jsphweid/fretcoach/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsIsAntisymmetric(t *testing.T) {
	assert := assert.New(t)
	for _, f := range []float64{61.7, 82.41, 110, 146.83, 440, 1046.5} {
		for _, target := range []float64{65.4, 110, 329.63, 1200} {
			assert.InDelta(-Cents(target, f), Cents(f, target), 1e-9)
		}
		assert.Equal(0.0, Cents(f, f))
	}
}

func TestCentsOfInvalidInputIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cents(0, 440))
	assert.Equal(t, 0.0, Cents(440, -1))
}

func TestCentsOneSemitone(t *testing.T) {
	assert.InDelta(t, 100.0, Cents(Frequency(70, 440), 440), 1e-9)
	assert.InDelta(t, -1200.0, Cents(220, 440), 1e-9)
}

func TestMapExactNotes(t *testing.T) {
	cases := []struct {
		freq float64
		want model.NoteIdentity
		midi int
	}{
		{440, model.NoteIdentity{Name: "A", Octave: 4}, 69},
		{110, model.NoteIdentity{Name: "A", Octave: 2}, 45},
		{82.4069, model.NoteIdentity{Name: "E", Octave: 2}, 40},
		{261.6256, model.NoteIdentity{Name: "C", Octave: 4}, 60},
		{246.9417, model.NoteIdentity{Name: "B", Octave: 3}, 59},
		{27.5, model.NoteIdentity{Name: "A", Octave: 0}, 21},
		{8.1758, model.NoteIdentity{Name: "C", Octave: -1}, 0},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%v Hz", c.freq), func(t *testing.T) {
			id, cents, midi := Map(c.freq, 440)
			assert := assert.New(t)
			assert.Equal(c.want, id)
			assert.Equal(c.midi, midi)
			assert.InDelta(0, cents, 0.01)
		})
	}
}

func TestMapAcrossTheGuitarRange(t *testing.T) {
	for midi := 28; midi <= 96; midi++ {
		exact := Frequency(midi, 440)
		for _, offset := range []float64{-49, -20, -3, 0, 3, 20, 49} {
			f := exact * math.Pow(2, offset/1200)
			id, cents, got := Map(f, 440)
			if got != midi || id != Identity(midi) {
				t.Fatalf("Map(%v) = %v/%d, want %v/%d", f, id, got, Identity(midi), midi)
			}
			if math.Abs(cents-offset) > 1e-6 {
				t.Fatalf("Map(%v) cents = %v, want %v", f, cents, offset)
			}
		}
	}
}

func TestMapHonoursReference(t *testing.T) {
	id, cents, _ := Map(432, 432)
	assert.Equal(t, model.NoteIdentity{Name: "A", Octave: 4}, id)
	assert.InDelta(t, 0, cents, 1e-9)
}

func TestIdentityRoundTrip(t *testing.T) {
	for midi := 0; midi < 128; midi++ {
		got, ok := Midi(Identity(midi))
		require.True(t, ok)
		require.Equal(t, midi, got)
	}
}

func TestName(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("E2", Name(40))
	assert.Equal("A#4", Name(70))
	assert.Equal("B-1", Name(11))
}

func TestParse(t *testing.T) {
	cases := map[string]model.NoteIdentity{
		"E2":  {Name: "E", Octave: 2},
		"c#4": {Name: "C#", Octave: 4},
		"Bb3": {Name: "A#", Octave: 3},
		"Eb2": {Name: "D#", Octave: 2},
		"Cb4": {Name: "B", Octave: 3},
		"B#3": {Name: "C", Octave: 4},
		"A-1": {Name: "A", Octave: -1},
	}
	for in, want := range cases {
		got, err := Parse(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	for _, bad := range []string{"", "H2", "C", "C#", "Ex"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}
