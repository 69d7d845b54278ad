package fsum

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drgo/fsum/testutils"
)

// scriptedSampler is a deterministic Sampler for tests.
type scriptedSampler struct {
	rate  float64
	err   error
	calls int
}

func (s *scriptedSampler) Sample() (float64, error) {
	s.calls++
	return s.rate, s.err
}

func writeFileIn(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func collect(t *testing.T, stream <-chan Result) []Result {
	t.Helper()
	var results []Result
	for res := range stream {
		results = append(results, res)
	}
	return results
}

func TestRunPairCountAndOrder(t *testing.T) {
	require := testutils.NewRequire(t)
	dir := t.TempDir()
	f1 := writeFileIn(t, dir, "a.txt", "first file")
	f2 := writeFileIn(t, dir, "b.txt", "second file")

	stream, err := New().Run(context.Background(), []string{f1, f2}, []Algorithm{MD5, SHA1})
	require.NoError(err, "Run should accept two literal paths")
	results := collect(t, stream)

	require.Len(results, 4, "Expected |files| x |algorithms| results")
	wantOrder := []struct {
		name string
		alg  Algorithm
	}{
		{"a.txt", MD5}, {"a.txt", SHA1}, {"b.txt", MD5}, {"b.txt", SHA1},
	}
	for i, want := range wantOrder {
		require.Equal(want.name, results[i].Name, "Result %d out of order", i)
		require.Equal(want.alg, results[i].Algorithm, "Result %d algorithm out of order", i)
		require.NoError(results[i].Err, "Result %d unexpectedly failed", i)
	}
}

func TestRunKnownDigests(t *testing.T) {
	require := testutils.NewRequire(t)
	path := writeFileIn(t, t.TempDir(), "a.txt", foxContent)

	stream, err := New().Run(context.Background(), []string{path}, []Algorithm{MD5, SHA1})
	require.NoError(err, "Run should succeed")
	results := collect(t, stream)

	require.Len(results, 2, "Expected exactly two records")
	require.Equal("a.txt", results[0].Name, "Expected the leaf name")
	require.Equal("a.txt", results[1].Name, "Expected the leaf name")
	require.Equal(foxMD5, results[0].Digest, "MD5 digest mismatch")
	require.Equal(foxSHA1, results[1].Digest, "SHA1 digest mismatch")
}

func TestRunRejectsUnsupportedAlgorithm(t *testing.T) {
	require := testutils.NewRequire(t)
	assert := testutils.NewAssert(t)
	path := writeFileIn(t, t.TempDir(), "a.txt", "content")

	stream, err := New().Run(context.Background(), []string{path}, []Algorithm{SHA1, Algorithm("CRC32")})
	require.Error(err, "An unsupported algorithm must fail the whole invocation")
	assert.True(IsConfigError(err), "Expected a ConfigError, got: %v", err)
	assert.True(stream == nil, "No result stream may be produced on a fatal error")
}

func TestRunContinuesPastFailedPairs(t *testing.T) {
	require := testutils.NewRequire(t)
	dir := t.TempDir()
	f1 := writeFileIn(t, dir, "good.txt", foxContent)
	f2 := writeFileIn(t, dir, "bad.txt", "doomed")

	b := New()
	b.hashFn = func(path string, alg Algorithm) (string, error) {
		if filepath.Base(path) == "bad.txt" {
			return "", os.ErrPermission
		}
		return ComputeDigest(path, alg)
	}

	stream, err := b.Run(context.Background(), []string{f1, f2}, []Algorithm{MD5, SHA1})
	require.NoError(err, "Per-pair failures must not abort the batch")
	results := collect(t, stream)

	require.Len(results, 4, "Failed pairs still occupy their slot in the stream")
	require.NoError(results[0].Err, "good.txt pairs should succeed")
	require.NoError(results[1].Err, "good.txt pairs should succeed")
	require.Error(results[2].Err, "bad.txt pairs should carry the failure")
	require.Error(results[3].Err, "bad.txt pairs should carry the failure")
	require.Equal(foxMD5, results[0].Digest, "Successful digests must be unaffected")
}

func TestRunDisablesProgressAfterTelemetryFailures(t *testing.T) {
	require := testutils.NewRequire(t)
	dir := t.TempDir()
	f1 := writeFileIn(t, dir, "one.bin", foxContent)
	f2 := writeFileIn(t, dir, "two.bin", foxContent)

	sampler := &scriptedSampler{err: ErrTelemetry}
	events := make(chan Event, 256)
	b := New(
		WithThreshold(1),
		WithPollInterval(time.Millisecond),
		WithSampler(sampler),
		WithProgressChannel(events),
	)
	// Slow the computation down so the polling loop gets enough ticks.
	b.hashFn = func(path string, alg Algorithm) (string, error) {
		time.Sleep(60 * time.Millisecond)
		return ComputeDigest(path, alg)
	}

	stream, err := b.Run(context.Background(), []string{f1, f2}, []Algorithm{SHA256})
	require.NoError(err, "Run should start normally")
	results := collect(t, stream)

	require.True(b.disabler.Disabled(), "Five consecutive telemetry failures must disable progress")
	require.Equal(failureThreshold, sampler.calls, "Sampling must stop at the failure threshold")
	require.Len(results, 2, "Both files must still hash")
	require.Equal(foxSHA256, results[0].Digest, "Hashing must complete despite disabled progress")
	require.Equal(foxSHA256, results[1].Digest, "Subsequent files fall back to the fast path")

	sawWarning := false
	for len(events) > 0 {
		if ev := <-events; ev.State == StateWarning {
			sawWarning = true
		}
	}
	require.True(sawWarning, "Expected a one-time warning event")
}

func TestRunPreDisabledSkipsSampling(t *testing.T) {
	require := testutils.NewRequire(t)
	path := writeFileIn(t, t.TempDir(), "one.bin", foxContent)

	sampler := &scriptedSampler{rate: 100}
	events := make(chan Event, 16)
	b := New(
		WithThreshold(1),
		WithPollInterval(time.Millisecond),
		WithSampler(sampler),
		WithProgressChannel(events),
		WithDisabler(NewDisabled()),
	)

	stream, err := b.Run(context.Background(), []string{path}, []Algorithm{SHA256})
	require.NoError(err, "Run should succeed with progress pre-disabled")
	results := collect(t, stream)

	require.Equal(0, sampler.calls, "A pre-disabled flag must prevent all sampling")
	require.Len(results, 1, "The file must still hash")
	require.Equal(foxSHA256, results[0].Digest, "Fast-path digest mismatch")
}

func TestRunEmitsBoundedProgressEvents(t *testing.T) {
	require := testutils.NewRequire(t)
	assert := testutils.NewAssert(t)
	path := writeFileIn(t, t.TempDir(), "one.bin", foxContent)
	size := int64(len(foxContent))

	// A rate of size/4 per tick crosses 100% on the fifth tick; those later
	// ticks must be suppressed.
	sampler := &scriptedSampler{rate: float64(size) / 4}
	events := make(chan Event, 256)
	b := New(
		WithThreshold(1),
		WithPollInterval(time.Millisecond),
		WithSampler(sampler),
		WithProgressChannel(events),
	)
	b.hashFn = func(p string, alg Algorithm) (string, error) {
		time.Sleep(30 * time.Millisecond)
		return ComputeDigest(p, alg)
	}

	stream, err := b.Run(context.Background(), []string{path}, []Algorithm{SHA256})
	require.NoError(err, "Run should succeed")
	results := collect(t, stream)
	require.Len(results, 1, "Expected one result")

	var hashing, done, batch int
	for len(events) > 0 {
		ev := <-events
		switch ev.State {
		case StateHashing:
			hashing++
			assert.True(ev.Percent > 0 && ev.Percent <= 100, "Tick percent out of (0, 100]: %f", ev.Percent)
		case StateDone:
			done++
			require.Equal(100.0, ev.Percent, "Completion must report 100%%")
		case StateBatch:
			batch++
			require.Equal(1, ev.Total, "Batch total mismatch")
		}
	}
	assert.True(hashing >= 1, "Expected at least one estimated tick, got %d", hashing)
	require.Equal(1, done, "Expected exactly one completion event")
	require.Equal(1, batch, "Expected one batch-level event per pair")
}

func TestExpandPaths(t *testing.T) {
	require := testutils.NewRequire(t)
	dir := t.TempDir()
	writeFileIn(t, dir, "a.txt", "a")
	writeFileIn(t, dir, "b.txt", "b")
	sub := filepath.Join(dir, "sub")
	require.NoError(os.Mkdir(sub, 0755), "mkdir failed")
	writeFileIn(t, sub, "c.txt", "c")

	t.Run("Directory, immediate children only", func(t *testing.T) {
		files, err := ExpandPaths([]string{dir}, false)
		require.NoError(err, "Non-recursive expansion failed")
		require.Len(files, 2, "Subdirectory entries must be excluded")
	})

	t.Run("Directory, recursive", func(t *testing.T) {
		files, err := ExpandPaths([]string{dir}, true)
		require.NoError(err, "Recursive expansion failed")
		require.Len(files, 3, "Recursion must include nested files")
	})

	t.Run("Wildcard pattern", func(t *testing.T) {
		files, err := ExpandPaths([]string{filepath.Join(dir, "*.txt")}, false)
		require.NoError(err, "Glob expansion failed")
		require.Len(files, 2, "Glob should match the two top-level files")
	})

	t.Run("Pattern matching nothing is fatal", func(t *testing.T) {
		_, err := ExpandPaths([]string{filepath.Join(dir, "*.iso")}, false)
		require.Error(err, "A pattern with no matches must be rejected")
	})

	t.Run("Missing literal path is fatal", func(t *testing.T) {
		_, err := ExpandPaths([]string{filepath.Join(dir, "absent.txt")}, false)
		require.Error(err, "A missing literal path must be rejected")
	})

	t.Run("No patterns is a config error", func(t *testing.T) {
		_, err := ExpandPaths(nil, false)
		require.Error(err, "Empty input must be rejected")
	})
}

func TestRunHonorsContextCancellation(t *testing.T) {
	require := testutils.NewRequire(t)
	dir := t.TempDir()
	f1 := writeFileIn(t, dir, "a.txt", "a")
	f2 := writeFileIn(t, dir, "b.txt", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream, err := New().Run(ctx, []string{f1, f2}, []Algorithm{SHA256})
	require.NoError(err, "Expansion happens before cancellation takes effect")
	results := collect(t, stream)
	require.Len(results, 0, "A cancelled context must stop the batch")
}
