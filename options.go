package fsum

import (
	"io"
	"time"
)

// WithAlgorithms sets the default algorithm set used when Run is called with
// an empty algorithm list.
func WithAlgorithms(algs ...Algorithm) Option {
	return func(b *Batcher) {
		if len(algs) > 0 {
			b.algorithms = algs
		}
	}
}

// WithRecursive makes directory patterns expand recursively.
func WithRecursive() Option {
	return func(b *Batcher) {
		b.recursive = true
	}
}

// WithThreshold sets the minimum file size for progress estimation.
func WithThreshold(bytes int64) Option {
	return func(b *Batcher) {
		if bytes > 0 {
			b.threshold = bytes
		}
	}
}

// WithPollInterval sets the telemetry sampling cadence for tracked files.
func WithPollInterval(interval time.Duration) Option {
	return func(b *Batcher) {
		if interval > 0 {
			b.pollInterval = interval
		}
	}
}

// WithProgressChannel sets a channel to receive progress events. Without one,
// every file takes the fast path.
func WithProgressChannel(ch chan<- Event) Option {
	return func(b *Batcher) {
		b.events = ch
	}
}

// WithSampler replaces the telemetry source, primarily for tests.
func WithSampler(s Sampler) Option {
	return func(b *Batcher) {
		b.sampler = s
	}
}

// WithDisabler injects a shared progress kill switch.
func WithDisabler(d *Disabler) Option {
	return func(b *Batcher) {
		if d != nil {
			b.disabler = d
		}
	}
}

// WithoutProgress disables progress estimation from the start.
func WithoutProgress() Option {
	return func(b *Batcher) {
		b.disabler.Disable()
	}
}

// WithVerboseOutput sets an io.Writer for verbose logging.
func WithVerboseOutput(w io.Writer) Option {
	return func(b *Batcher) {
		b.logger.SetOutput(w)
	}
}
