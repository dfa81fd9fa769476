// Package note maps frequencies onto the twelve-tone equal tempered scale.
//
// Everything here is pure and stateless. Note numbers follow MIDI: A4 = 69.
package note

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/jsphweid/fretcoach/constants"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/util"
)

var Names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letters = map[rune]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// HalfSteps returns the (fractional) number of semitones between f and ref.
func HalfSteps(f, ref float64) float64 {
	return 12 * math.Log2(f/ref)
}

// Cents is the signed distance from target to f. Non-positive inputs yield 0.
func Cents(f, target float64) float64 {
	if f <= 0 || target <= 0 {
		return 0
	}
	return 1200 * math.Log2(f/target)
}

func Frequency(midi int, ref float64) float64 {
	return ref * math.Pow(2, float64(midi-constants.ReferenceMidi)/12)
}

func Identity(midi int) model.NoteIdentity {
	return model.NoteIdentity{
		Name:   Names[util.Mod(midi, 12)],
		Octave: util.FloorDiv(midi, 12) - 1,
	}
}

func Name(midi int) string {
	return Identity(midi).String()
}

// Midi is the inverse of Identity.
func Midi(id model.NoteIdentity) (int, bool) {
	pc, ok := PitchClass(id.Name)
	if !ok {
		return 0, false
	}
	return (id.Octave+1)*12 + pc, true
}

// PitchClass accepts sharp spelled names only, as produced by Identity.
func PitchClass(name string) (int, bool) {
	for i, n := range Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Map finds the nearest semitone to f and the deviation from it in cents.
// It returns the MIDI number of that semitone too.
func Map(f, ref float64) (model.NoteIdentity, float64, int) {
	n := int(math.Round(HalfSteps(f, ref)))
	nearest := ref * math.Pow(2, float64(n)/12)
	midi := constants.ReferenceMidi + n
	return Identity(midi), Cents(f, nearest), midi
}

// Parse accepts names like "E2", "C#4", "Bb3" and "A-1". Enharmonic
// spellings are normalised to sharps, so "Cb4" parses as B3.
func Parse(s string) (model.NoteIdentity, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return model.NoteIdentity{}, fmt.Errorf("note: cannot parse %q", s)
	}

	letter, ok := letters[unicode.ToUpper(rune(s[0]))]
	if !ok {
		return model.NoteIdentity{}, fmt.Errorf("note: unknown pitch class in %q", s)
	}

	rest := s[1:]
	switch rest[0] {
	case '#':
		letter++
		rest = rest[1:]
	case 'b':
		letter--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return model.NoteIdentity{}, fmt.Errorf("note: bad octave in %q: %w", s, err)
	}
	return Identity((octave+1)*12 + letter), nil
}
