package feed

import "sync"

// Pump serializes snapshot delivery for one subscription. Backends hand it
// snapshots and at most one terminal error from whatever goroutine observed
// the change; a single delivery goroutine invokes the callbacks, so a
// callback is never entered while a prior invocation is still running.
//
// When deliveries outpace the consumer, intermediate snapshots are coalesced
// to the latest one. Whole-snapshot replace semantics make the skipped
// snapshots redundant.
type Pump struct {
	mu      sync.Mutex
	pending []Record
	queued  bool
	failure error

	wake chan struct{}
	done chan struct{}

	stopOnce sync.Once

	onSnapshot SnapshotFunc
	onError    ErrorFunc
}

// NewPump starts the delivery goroutine for one subscription.
func NewPump(onSnapshot SnapshotFunc, onError ErrorFunc) *Pump {
	p := &Pump{
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		onSnapshot: onSnapshot,
		onError:    onError,
	}
	go p.run()
	return p
}

// Deliver queues a snapshot, replacing any snapshot not yet handed to the
// consumer.
func (p *Pump) Deliver(records []Record) {
	p.mu.Lock()
	p.pending = records
	p.queued = true
	p.mu.Unlock()
	p.signal()
}

// Fail queues the terminal error. Only the first failure is reported; the
// pump stops after delivering it.
func (p *Pump) Fail(err error) {
	p.mu.Lock()
	if p.failure == nil {
		p.failure = err
	}
	p.mu.Unlock()
	p.signal()
}

// Stop halts delivery. Idempotent; nothing is delivered afterward.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *Pump) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pump) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		p.mu.Lock()
		records, queued := p.pending, p.queued
		p.pending, p.queued = nil, false
		failure := p.failure
		p.mu.Unlock()

		select {
		case <-p.done:
			return
		default:
		}

		if queued {
			p.onSnapshot(records)
		}
		if failure != nil {
			p.onError(failure)
			p.Stop()
			return
		}
	}
}
