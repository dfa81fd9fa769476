package midi

import (
	"errors"
	"math"
	"sort"

	"github.com/jsphweid/fretcoach/constants"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
	"github.com/jsphweid/fretcoach/util"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrTimeFormat = errors.New("midi: only metric time formats are supported")

// StandardGuitar is E2 A2 D3 G3 B3 E4, lowest string first.
var StandardGuitar = []int{40, 45, 50, 55, 59, 64}

type TimelineOptions struct {
	// -1 reads every track
	Track int
	// -1 reads every channel
	Channel     int
	OpenStrings []int
	MaxFret     int
	MinMidi     int
	MaxMidi     int
	// drop notes before StartMs and shift the rest to start at 0
	StartMs float64
	// 0 keeps every note
	MaxNotes int
}

func DefaultTimelineOptions() TimelineOptions {
	return TimelineOptions{
		Track:       -1,
		Channel:     -1,
		OpenStrings: StandardGuitar,
		MaxFret:     constants.GuitarMaxFret,
		MinMidi:     constants.GuitarMinMidi,
		MaxMidi:     constants.GuitarMaxMidi,
	}
}

type reducedEvent struct {
	tick      int64
	micros    int64
	channel   uint8
	key       uint8
	isNoteOff bool
}

type meter struct {
	tick        int64
	numerator   int64
	denominator int64
}

// Timeline pairs note ons with note offs and places every playable note on
// the fretboard at its lowest fret.
func Timeline(s *smf.SMF, opts TimelineOptions) (model.Timeline, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return model.Timeline{}, ErrTimeFormat
	}
	resolution := int64(ticks.Resolution())

	var events []reducedEvent
	meters := []meter{{0, 4, 4}}
	var endMicros int64

	for i, track := range s.Tracks {
		var absTicks int64
		for _, event := range track {
			absTicks += int64(event.Delta)
			absTime := s.TimeAt(absTicks)
			if absTime > endMicros {
				endMicros = absTime
			}

			var num, denom uint8
			if event.Message.GetMetaMeter(&num, &denom) && num > 0 && denom > 0 {
				meters = append(meters, meter{absTicks, int64(num), int64(denom)})
				continue
			}
			if opts.Track >= 0 && i != opts.Track {
				continue
			}

			var channel, key, velocity uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				events = append(events, reducedEvent{absTicks, absTime, channel, key, velocity == 0})
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				events = append(events, reducedEvent{absTicks, absTime, channel, key, true})
			}
		}
	}

	// note offs first, so a repeated key closes before it reopens
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].isNoteOff && !events[j].isNoteOff
	})
	sort.SliceStable(meters, func(i, j int) bool { return meters[i].tick < meters[j].tick })

	type voice struct{ channel, key uint8 }
	open := make(map[voice][]int)
	var notes []model.ExpectedNote
	for _, evt := range events {
		if opts.Channel >= 0 && int(evt.channel) != opts.Channel {
			continue
		}
		v := voice{evt.channel, evt.key}
		if evt.isNoteOff {
			if started := open[v]; len(started) > 0 {
				n := &notes[started[0]]
				n.DurationMs = float64(evt.micros)/1000 - n.TimeMs
				open[v] = started[1:]
			}
			continue
		}

		midi := int(evt.key)
		if midi < opts.MinMidi || midi > opts.MaxMidi {
			continue
		}
		str, fret, ok := Position(midi, opts.OpenStrings, opts.MaxFret)
		if !ok {
			continue
		}
		bar, beat := barBeat(evt.tick, meters, resolution)
		open[v] = append(open[v], len(notes))
		notes = append(notes, model.ExpectedNote{
			TimeMs:       float64(evt.micros) / 1000,
			DurationMs:   -1,
			Midi:         midi,
			String:       str,
			Fret:         fret,
			MeasureIndex: bar,
			BeatIndex:    beat,
			NoteName:     note.Name(midi),
		})
	}

	// notes never turned off ring to the end of the file
	for i := range notes {
		if notes[i].DurationMs < 0 {
			notes[i].DurationMs = math.Max(0, float64(endMicros)/1000-notes[i].TimeMs)
		}
	}

	return trim(notes, opts), nil
}

func trim(notes []model.ExpectedNote, opts TimelineOptions) model.Timeline {
	var res model.Timeline
	for _, n := range notes {
		if n.TimeMs < opts.StartMs {
			continue
		}
		if opts.MaxNotes > 0 && len(res.Notes) >= opts.MaxNotes {
			break
		}
		n.TimeMs -= opts.StartMs
		res.Notes = append(res.Notes, n)
		res.DurationMs = math.Max(res.DurationMs, n.TimeMs+n.DurationMs)
	}
	return res
}

func barBeat(tick int64, meters []meter, resolution int64) (int, int) {
	cur := meters[0]
	var bar, start int64
	for _, m := range meters[1:] {
		if m.tick > tick {
			break
		}
		bar += (m.tick - start) / barTicks(cur, resolution)
		start, cur = m.tick, m
	}
	rel := tick - start
	bt := barTicks(cur, resolution)
	bar += rel / bt
	beat := (rel % bt) / beatTicks(cur, resolution)
	return int(bar), int(beat)
}

// beatTicks and barTicks are at least 1 so odd resolutions or meters with a
// huge denominator cannot divide by zero.
func beatTicks(m meter, resolution int64) int64 {
	return util.Max(1, resolution*4/m.denominator)
}

func barTicks(m meter, resolution int64) int64 {
	return util.Max(1, m.numerator*resolution*4/m.denominator)
}

// Position finds the string and fret that play midi with the lowest fret.
// Strings are numbered from the highest (1) down. open is lowest string
// first.
func Position(midi int, open []int, maxFret int) (str int, fret int, ok bool) {
	fret = maxFret + 1
	for i, o := range open {
		f := midi - o
		if f >= 0 && f <= maxFret && f < fret {
			str, fret, ok = len(open)-i, f, true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return str, fret, true
}
