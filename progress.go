package fsum

import (
	"sync/atomic"
	"time"
)

// State defines what a progress Event describes.
type State int

const (
	// StateHashing indicates an estimated per-file progress tick.
	StateHashing State = iota
	// StateDone indicates that a file's digest computation finished.
	StateDone
	// StateBatch carries coarse completed-pairs / total-pairs progress.
	StateBatch
	// StateWarning carries a one-time notice, e.g. progress disablement.
	StateWarning
)

// Event holds a progress update, designed to be sent over a channel.
type Event struct {
	Path      string
	Algorithm Algorithm
	Percent   float64
	ETA       time.Duration
	Frame     byte
	State     State
	Completed int
	Total     int
	Message   string
}

// spinnerFrames is the cyclic glyph sequence shown while estimating.
const spinnerFrames = `|/-\`

// Disabler is the process-wide progress kill switch. It transitions once,
// false to true, and stays true for the remainder of the run. It is passed
// into the batch loop by reference instead of living as package state so
// tests can inject a pre-disabled instance.
type Disabler struct {
	off atomic.Bool
}

// NewDisabler returns an enabled (not yet tripped) flag.
func NewDisabler() *Disabler {
	return &Disabler{}
}

// NewDisabled returns a flag that is already tripped, for callers that want
// progress off from the start.
func NewDisabled() *Disabler {
	d := &Disabler{}
	d.off.Store(true)
	return d
}

// Disable trips the flag. Safe to call more than once.
func (d *Disabler) Disable() {
	d.off.Store(true)
}

// Disabled reports whether progress is off for the rest of the run.
func (d *Disabler) Disabled() bool {
	return d.off.Load()
}

// failureThreshold is the number of consecutive telemetry failures after
// which progress is disabled for the remainder of the batch.
const failureThreshold = 5

// Estimator derives a monotonic per-file progress estimate from noisy
// throughput samples. The throughput counter is process-wide, so the estimate
// is only a proxy for the file actually being read; it tolerates noise and
// outright unavailability without ever affecting the hash itself.
//
// Each successful tick adds the sampled rate value directly to the running
// byte estimate. The resulting percent can overshoot 100; overshoot ticks are
// suppressed from display while accumulation continues.
type Estimator struct {
	path     string
	alg      Algorithm
	size     int64
	disabler *Disabler
	emit     func(Event)

	bytesRead float64
	failures  int
	frame     int
}

func newEstimator(path string, alg Algorithm, size int64, disabler *Disabler, emit func(Event)) *Estimator {
	return &Estimator{path: path, alg: alg, size: size, disabler: disabler, emit: emit}
}

// Tick folds one telemetry sample (or sampling failure) into the estimate.
func (e *Estimator) Tick(rate float64, err error) {
	if e.disabler.Disabled() {
		return
	}
	if err != nil {
		e.failures++
		if e.failures >= failureThreshold {
			e.disabler.Disable()
			e.emit(Event{
				Path:    e.path,
				State:   StateWarning,
				Message: "progress reporting disabled: telemetry counter unavailable",
			})
		}
		return
	}
	if rate <= 0 {
		// No bytes moved this tick. Not a failure, no state change.
		return
	}
	e.failures = 0

	e.bytesRead += rate
	percent := e.bytesRead / float64(e.size) * 100
	if percent > 100 {
		// Estimate overshoot: keep accumulating, skip this tick's display.
		return
	}
	e.emit(Event{
		Path:      e.path,
		Algorithm: e.alg,
		Percent:   percent,
		ETA:       time.Duration((float64(e.size) - e.bytesRead) / rate * float64(time.Second)),
		Frame:     spinnerFrames[e.frame],
		State:     StateHashing,
	})
	e.frame = (e.frame + 1) % len(spinnerFrames)
}

// Finish emits the terminal 100% event for the file.
func (e *Estimator) Finish() {
	if e.disabler.Disabled() {
		return
	}
	e.emit(Event{
		Path:      e.path,
		Algorithm: e.alg,
		Percent:   100,
		State:     StateDone,
	})
}
