package fsum

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Sampler reports instantaneous read throughput for the process whose file
// reads drive the digest computation. Every call is fallible: the underlying
// counter may not be visible yet or may be transiently unavailable, and
// callers must treat a failure as "no sample", never as a zero rate.
type Sampler interface {
	Sample() (bytesPerSec float64, err error)
}

// IOSampler samples the kernel's per-process I/O counters. The process handle
// is resolved once at construction — resolution may be slow or fail and is
// never repeated per sample — and each Sample derives a rate from the delta
// of cumulative read bytes since the previous call.
type IOSampler struct {
	proc      *process.Process
	lastBytes uint64
	lastAt    time.Time
	primed    bool
}

// NewIOSampler resolves the counter source for the given pid.
func NewIOSampler(pid int32) (*IOSampler, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve process %d: %v", ErrTelemetry, pid, err)
	}
	return &IOSampler{proc: proc}, nil
}

// Sample returns the read throughput since the previous call. The first call
// primes the baseline and reports zero, which the estimator treats as "no
// progress this tick" rather than a failure.
func (s *IOSampler) Sample() (float64, error) {
	counters, err := s.proc.IOCounters()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTelemetry, err)
	}
	now := time.Now()
	if !s.primed {
		s.primed = true
		s.lastBytes = counters.ReadBytes
		s.lastAt = now
		return 0, nil
	}

	elapsed := now.Sub(s.lastAt).Seconds()
	delta := counters.ReadBytes - s.lastBytes
	s.lastBytes = counters.ReadBytes
	s.lastAt = now
	if elapsed <= 0 {
		return 0, nil
	}
	return float64(delta) / elapsed, nil
}
