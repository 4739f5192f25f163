// Package events implements the per-codec-instance dequeue signal and
// generic addEventListener/removeEventListener/dispatchEvent registry of
// spec.md §4.E. Dispatch runs listeners synchronously on whatever
// goroutine calls it; for the dequeue event that is the pipeline's own
// worker goroutine (internal/pipeline calls Dispatch from pop()), so a
// slow listener delays the next queued item. Listeners must return
// promptly for the same reason a pipeline work item must.
package events

import "sync"

// Type names the one event this engine emits today. The registry is
// generic over type strings so additional event types can be added
// without a breaking change.
const TypeDequeue = "dequeue"

// Listener is a registered callback. Go cannot compare func values, so a
// registration is identified for removal only by the token
// AddEventListener returns; Callback and Capture play no part in removal.
type Listener struct {
	Callback func()
	Capture  bool
}

type registration struct {
	token    uint64
	listener Listener
}

// Dispatcher holds the ondequeue slot and the generic listener map. Zero
// value is ready to use.
type Dispatcher struct {
	mu        sync.Mutex
	onDequeue func()
	listeners map[string][]registration
	nextToken uint64
}

// New returns a ready-to-use Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]registration)}
}

// SetOnDequeue installs or clears (cb == nil) the ondequeue slot.
func (d *Dispatcher) SetOnDequeue(cb func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDequeue = cb
}

// OnDequeue returns the current ondequeue slot, or nil if unset.
func (d *Dispatcher) OnDequeue() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onDequeue
}

// AddEventListener registers cb for typ and returns a token identifying
// this registration for RemoveEventListener.
func (d *Dispatcher) AddEventListener(typ string, cb func(), capture bool) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextToken++
	token := d.nextToken
	d.listeners[typ] = append(d.listeners[typ], registration{token: token, listener: Listener{Callback: cb, Capture: capture}})
	return token
}

// RemoveEventListener unregisters the listener previously returned by
// AddEventListener as token.
func (d *Dispatcher) RemoveEventListener(typ string, token uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := d.listeners[typ]
	for i, r := range regs {
		if r.token == token {
			d.listeners[typ] = append(regs[:i], regs[i+1:]...)
			return
		}
	}
}

// Dispatch invokes every registered listener for typ, plus ondequeue
// when typ is TypeDequeue. Callbacks run synchronously, inline, on
// whatever goroutine calls Dispatch; the listener list is snapshotted
// first so a listener that calls AddEventListener/RemoveEventListener
// does not race this dispatch.
func (d *Dispatcher) Dispatch(typ string) {
	d.mu.Lock()
	regs := append([]registration(nil), d.listeners[typ]...)
	onDequeue := d.onDequeue
	d.mu.Unlock()

	for _, r := range regs {
		if r.listener.Callback != nil {
			r.listener.Callback()
		}
	}
	if typ == TypeDequeue && onDequeue != nil {
		onDequeue()
	}
}
