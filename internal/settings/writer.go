package settings

import "sync"

// Saver writes a snapshot somewhere durable.
type Saver interface {
	Save(Snapshot) error
}

type writeRequest struct {
	snap Snapshot
	gen  uint64
}

type writeResult struct {
	gen uint64
	err error
}

// writer runs saves on a background goroutine with at most one write in
// flight. A request submitted while one is in flight replaces any queued
// request, so a burst ends in exactly one more write holding the newest
// value. submit and poll belong to the tick goroutine.
type writer struct {
	saver    Saver
	requests chan writeRequest
	results  chan writeResult
	inflight bool
	pending  *writeRequest
	wg       sync.WaitGroup
	closed   bool
}

func newWriter(saver Saver) *writer {
	w := &writer{
		saver:    saver,
		requests: make(chan writeRequest, 1),
		results:  make(chan writeResult, 1),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *writer) run() {
	defer w.wg.Done()
	for req := range w.requests {
		err := w.saver.Save(req.snap)
		w.results <- writeResult{gen: req.gen, err: err}
	}
}

func (w *writer) submit(req writeRequest) {
	if w.closed {
		return
	}
	if w.inflight {
		w.pending = &req
		return
	}
	w.inflight = true
	w.requests <- req
}

// poll returns a finished write, if any, and starts the queued one.
func (w *writer) poll() (writeResult, bool) {
	if !w.inflight {
		return writeResult{}, false
	}
	select {
	case res := <-w.results:
		w.finish()
		return res, true
	default:
		return writeResult{}, false
	}
}

// wait blocks for the in-flight write. Queued requests are dropped; the
// caller is about to write synchronously.
func (w *writer) wait() (writeResult, bool) {
	w.pending = nil
	if !w.inflight {
		return writeResult{}, false
	}
	res := <-w.results
	w.inflight = false
	return res, true
}

func (w *writer) finish() {
	w.inflight = false
	if w.pending != nil {
		next := *w.pending
		w.pending = nil
		w.submit(next)
	}
}

func (w *writer) busy() bool { return w.inflight }

func (w *writer) close() {
	if w.closed {
		return
	}
	w.wait()
	w.closed = true
	close(w.requests)
	w.wg.Wait()
}
