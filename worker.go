package fsum

// worker runs one digest computation in the background so the caller's
// polling loop is never blocked by the hash itself. The computation is opaque
// until completion: no partial result is ever available from it.
type worker struct {
	done   chan struct{}
	digest string
	err    error
}

// startWorker launches the computation. hashFn is ComputeDigest in
// production; tests substitute slow or failing functions.
func startWorker(path string, alg Algorithm, hashFn func(string, Algorithm) (string, error)) *worker {
	w := &worker{done: make(chan struct{})}
	go func() {
		// Closing done is the only publication point; digest and err are
		// written before it and read only after it.
		defer close(w.done)
		w.digest, w.err = hashFn(path, alg)
	}()
	return w
}

// IsComplete reports whether the computation has finished, without blocking.
func (w *worker) IsComplete() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Await blocks until the computation finishes and returns its result.
func (w *worker) Await() (string, error) {
	<-w.done
	return w.digest, w.err
}
