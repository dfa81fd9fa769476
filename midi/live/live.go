// Package live reads notes played on a MIDI instrument as they happen.
package live

import (
	"fmt"
	"log/slog"

	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// InPorts lists the MIDI inputs the rtmidi driver can see.
func InPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("live: rtmididrv: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("live: list inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// Listen reports every note start on the named input, e.g. a MIDI guitar
// pickup, stamped with now(). Call stop to close the port.
func Listen(portName string, now func() float64, onNote func(model.DetectedNoteEvent), logger *slog.Logger) (stop func(), err error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("live: rtmididrv: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("live: list inputs: %w", err)
	}

	var found drivers.In
	for _, in := range ins {
		if in.String() == portName {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("live: input %q not found", portName)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("live: open %q: %w", portName, err)
	}

	stopListening, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			ev := model.DetectedNoteEvent{Note: note.Identity(int(key)), TimestampMs: now()}
			logger.Debug("live: note on", "ch", ch, "key", key, "vel", vel, "note", ev.Note.String())
			onNote(ev)
		}
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("live: listener error", "device", portName, "err", listenErr)
	}))
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("live: listen %q: %w", portName, err)
	}

	return func() {
		stopListening()
		_ = found.Close()
		drv.Close()
	}, nil
}
