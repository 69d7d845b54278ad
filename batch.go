package fsum

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultThreshold is the minimum file size for which progress estimation is
// attempted. Smaller files take the synchronous fast path.
const DefaultThreshold = 8 << 20

// DefaultPollInterval is the telemetry sampling cadence while a tracked
// file's digest is being computed.
const DefaultPollInterval = 100 * time.Millisecond

// Result is one completed (file, algorithm) pair. Err is set instead of
// Digest when that pair failed; the batch continues past it.
type Result struct {
	Path      string
	Name      string
	Algorithm Algorithm
	Digest    string
	Err       error
}

// Batcher expands path patterns into files and streams a digest result per
// (file, algorithm) pair. Pairs are processed one at a time: the throughput
// counter driving progress estimation is process-wide, so hashing files in
// parallel would make the attribution meaningless.
type Batcher struct {
	algorithms   []Algorithm
	recursive    bool
	threshold    int64
	pollInterval time.Duration
	sampler      Sampler
	disabler     *Disabler
	events       chan<- Event
	logger       *log.Logger

	// hashFn is ComputeDigest unless a test substitutes it.
	hashFn func(string, Algorithm) (string, error)
}

// Option configures a Batcher.
type Option func(*Batcher)

// New creates a Batcher with the default threshold, poll interval and
// algorithm set.
func New(opts ...Option) *Batcher {
	b := &Batcher{
		algorithms:   append([]Algorithm(nil), DefaultAlgorithms...),
		threshold:    DefaultThreshold,
		pollInterval: DefaultPollInterval,
		disabler:     NewDisabler(),
		logger:       log.New(io.Discard, "[fsum verbose] ", log.Ltime|log.Lmicroseconds),
		hashFn:       ComputeDigest,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ExpandPaths turns path patterns into a flat, discovery-ordered file list.
// A pattern containing wildcard syntax is globbed; a directory is enumerated
// (recursively when recursive is set, immediate regular files otherwise); any
// other path is taken literally and must exist. Expansion problems are fatal:
// the whole invocation is rejected before any hashing starts.
func ExpandPaths(patterns []string, recursive bool) ([]string, error) {
	if len(patterns) == 0 {
		return nil, configErrorf("at least one path pattern is required")
	}

	var files []string
	for _, pattern := range patterns {
		if strings.ContainsAny(pattern, "*?[") {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match pattern %q", pattern)
			}
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					return nil, fmt.Errorf("cannot stat %s: %w", match, err)
				}
				if info.Mode().IsRegular() {
					files = append(files, match)
				}
			}
			continue
		}

		info, err := os.Stat(pattern)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", pattern, err)
		}
		if !info.IsDir() {
			files = append(files, pattern)
			continue
		}

		expanded, err := expandDir(pattern, recursive)
		if err != nil {
			return nil, err
		}
		files = append(files, expanded...)
	}
	return files, nil
}

func expandDir(dir string, recursive bool) ([]string, error) {
	var files []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// Run validates the request, expands paths, and streams results in
// file-then-algorithm order. Validation and expansion errors are returned
// before any hashing starts; per-pair hashing errors travel in the stream.
// The returned channel is closed when the batch finishes or ctx is cancelled.
func (b *Batcher) Run(ctx context.Context, paths []string, algorithms []Algorithm) (<-chan Result, error) {
	if len(algorithms) == 0 {
		algorithms = b.algorithms
	}
	for _, alg := range algorithms {
		if _, err := ParseAlgorithm(string(alg)); err != nil {
			return nil, configErrorf("%v", err)
		}
	}

	files, err := ExpandPaths(paths, b.recursive)
	if err != nil {
		return nil, err
	}
	b.logger.Printf("Expanded %d pattern(s) into %d file(s), %d algorithm(s) each", len(paths), len(files), len(algorithms))

	out := make(chan Result)
	go func() {
		defer close(out)
		total := len(files) * len(algorithms)
		completed := 0
		for _, file := range files {
			for _, alg := range algorithms {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res := b.hashOne(file, alg)
				completed++
				b.send(Event{State: StateBatch, Path: file, Algorithm: alg, Completed: completed, Total: total})
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// hashOne computes one pair, choosing the fast path for small files and for
// the remainder of the batch once progress has been disabled.
func (b *Batcher) hashOne(path string, alg Algorithm) Result {
	res := Result{Path: path, Name: filepath.Base(path), Algorithm: alg}

	info, err := os.Stat(path)
	if err != nil {
		res.Err = fmt.Errorf("cannot access %s: %w", path, err)
		return res
	}

	if b.disabler.Disabled() || b.events == nil || info.Size() <= b.threshold {
		b.logger.Printf("Hashing %s with %s (fast path)", path, alg)
		res.Digest, res.Err = b.hashFn(path, alg)
		return res
	}

	b.logger.Printf("Hashing %s with %s (tracked, %d bytes)", path, alg, info.Size())
	res.Digest, res.Err = b.hashTracked(path, alg, info.Size())
	return res
}

// hashTracked runs the digest computation on a background worker and drives
// the estimator from a polling loop until the worker completes. All progress
// state is owned by this loop; the worker only ever publishes its final
// result.
func (b *Batcher) hashTracked(path string, alg Algorithm, size int64) (string, error) {
	sampler := b.ensureSampler()
	if sampler == nil {
		return b.hashFn(path, alg)
	}

	est := newEstimator(path, alg, size, b.disabler, b.send)
	w := startWorker(path, alg, b.hashFn)
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for !w.IsComplete() {
		<-ticker.C
		if w.IsComplete() {
			break
		}
		if b.disabler.Disabled() {
			// Tripped mid-file, possibly by this very estimator. The hash
			// still completes; only its visualization stops.
			return w.Await()
		}
		rate, err := sampler.Sample()
		est.Tick(rate, err)
	}

	digest, err := w.Await()
	if err == nil {
		est.Finish()
	}
	return digest, err
}

// ensureSampler resolves the telemetry source on first use. Resolution
// failure disables progress for the run with a one-time warning; it never
// affects hashing.
func (b *Batcher) ensureSampler() Sampler {
	if b.sampler != nil {
		return b.sampler
	}
	sampler, err := NewIOSampler(int32(os.Getpid()))
	if err != nil {
		b.logger.Printf("Telemetry resolution failed: %v", err)
		b.disabler.Disable()
		b.send(Event{State: StateWarning, Message: "progress reporting disabled: telemetry counter unavailable"})
		return nil
	}
	b.sampler = sampler
	return sampler
}

// send delivers an event without ever blocking the batch: if the receiver is
// absent or behind, the update is dropped.
func (b *Batcher) send(ev Event) {
	if b.events == nil {
		return
	}
	select {
	case b.events <- ev:
	default:
	}
}
