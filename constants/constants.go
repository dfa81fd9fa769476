package constants

import "os"

func GetReportDir() string {
	path := os.Getenv("REPORT_PATH")
	if path != "" {
		return path
	}
	return "./reports"
}

func GetConfigPath() string {
	return os.Getenv("FRETCOACH_CONFIG")
}

// A4, MIDI 69
const ReferenceHz = 440.0
const ReferenceMidi = 69

const SampleRate = 44100
const FrameSize = 2048
const FrameOverlap = 1024

// samples the estimator is less sure of are dropped
const ConfidenceThreshold = 0.80

const MinFrequencyHz = 60.0
const MaxFrequencyHz = 1200.0

const ToleranceCents = 5.0
const HoldMs = 500

const SmoothingSize = 8
const StabilitySize = 10
const StabilityThresholdHz = 5.0
const MinStableSamples = 3

const StringToleranceCents = 8.0

const MatchWindowMs = 100.0
const TimingPenaltyThresholdMs = 50.0
const TimingPenaltyPerMs = 0.1

const SilenceFrames = 10
const StopTimeoutMs = 2000
const TickMs = 20
const StatusDebounceMs = 150
const FeedSize = 16

// lowest and highest notes we expect from a 6 string guitar with 24 frets
const GuitarMinMidi = 40
const GuitarMaxMidi = 88
const GuitarMaxFret = 24
