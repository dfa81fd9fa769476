package tuning

import (
	"math"
	"time"

	"github.com/jsphweid/fretcoach/model"
)

// Classify is the whole status decision. held is how long the pitch has been
// continuously within tolerance, including the current sample.
func Classify(cents, tolerance float64, held, hold time.Duration, stable bool) model.TuningStatus {
	switch {
	case !stable:
		return model.StatusWaiting
	case math.Abs(cents) > tolerance && cents > 0:
		return model.StatusSharp
	case math.Abs(cents) > tolerance:
		return model.StatusFlat
	case held >= hold:
		return model.StatusInTune
	default:
		return model.StatusAlmost
	}
}

// StateMachine keeps the in-tolerance timer. The hold must be one unbroken
// interval: any out-of-tolerance or unstable sample restarts it.
//
// Owned by the audio goroutine.
type StateMachine struct {
	Tolerance float64
	Hold      time.Duration

	holding bool
	since   time.Time
	status  model.TuningStatus
}

func NewStateMachine(toleranceCents float64, hold time.Duration) *StateMachine {
	return &StateMachine{Tolerance: toleranceCents, Hold: hold}
}

func (m *StateMachine) Evaluate(cents float64, stable bool, at time.Time) model.TuningStatus {
	inTolerance := stable && math.Abs(cents) <= m.Tolerance

	var held time.Duration
	if inTolerance {
		if !m.holding {
			m.holding = true
			m.since = at
		}
		held = at.Sub(m.since)
	} else {
		m.holding = false
	}

	m.status = Classify(cents, m.Tolerance, held, m.Hold, stable)
	return m.status
}

// Held is the current unbroken in-tolerance duration as of at.
func (m *StateMachine) Held(at time.Time) time.Duration {
	if !m.holding {
		return 0
	}
	return at.Sub(m.since)
}

func (m *StateMachine) Status() model.TuningStatus {
	return m.status
}

func (m *StateMachine) Reset() {
	m.holding = false
	m.since = time.Time{}
	m.status = model.StatusWaiting
}
