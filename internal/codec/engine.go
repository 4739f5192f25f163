// Package codec implements the four public codec facades of spec.md
// §1/§4: VideoEncoder, VideoDecoder, AudioEncoder, AudioDecoder. Each
// wraps a shared core (this file) that owns the state machine, work
// pipeline, event dispatcher, and hardware/software backend selection;
// the per-type files add only the encode/decode call and the
// codec-specific output-metadata assembly, the way the teacher keeps a
// thin typed wrapper (internal/encoder) around one external capability
// rather than duplicating process-management plumbing per codec.
package codec

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/events"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/pipeline"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/telemetry"
	"github.com/five82/webcodecsgo/internal/value"
)

// Backends is the pair of CodecBackend collaborators an instance chooses
// between: a possibly-nil hardware-accelerated backend (go-astiav or
// go-gst) and the always-present dependency-free software backend.
// hwfallback biases "no-preference" configures away from Hardware once
// it has failed often enough for a given {codec, direction}.
type Backends struct {
	Hardware backend.CodecBackend
	Software *backend.Software

	// Fallback defaults to hwfallback.Default when nil. Tests supply a
	// private registry so hardware-failure counters do not leak between
	// cases.
	Fallback *hwfallback.Registry
}

func (b Backends) fallback() *hwfallback.Registry {
	if b.Fallback != nil {
		return b.Fallback
	}
	return hwfallback.Default
}

// combinedProber answers ProbeSupport for isConfigSupported queries that
// are not tied to a live instance: supported if either collaborator can
// realise the codec.
type combinedProber struct {
	hw backend.CodecBackend
	sw backend.CodecBackend
}

func (p combinedProber) ProbeSupport(codec string, role config.Role) bool {
	if p.hw != nil && p.hw.ProbeSupport(codec, role) {
		return true
	}
	return p.sw != nil && p.sw.ProbeSupport(codec, role)
}

// Prober returns the config.Prober isConfigSupported should query for
// this instance's role.
func (b Backends) Prober() config.Prober {
	var sw backend.CodecBackend
	if b.Software != nil {
		sw = b.Software
	}
	return combinedProber{hw: b.Hardware, sw: sw}
}

// core is the shared engine behind all four facades.
type core struct {
	mu sync.Mutex

	id        string
	tel       *telemetry.InstanceLogger
	backends  Backends
	role      config.Role
	direction hwfallback.Direction
	codec     string

	machine *state.Machine
	pipe    *pipeline.Pipeline
	events  *events.Dispatcher

	handle    backend.Handle
	hasHandle bool
	chosenHW  bool

	// lastDescription is the most recent decoder-configuration
	// description bytes handed out, so an encoder's output assembly knows
	// whether this output's DecoderConfig changed since the last one
	// (spec.md §3: "present on the first output after each configure and
	// thereafter only when decoder-relevant parameters change").
	lastDescription []byte
	describedOnce   bool

	// lastRotation/lastFlip/lastColorSpace track the video-only display
	// transform and color primaries noteVideoDescription compares against,
	// alongside lastDescription, to decide whether an encoder output's
	// DecoderConfig changed since the last one.
	lastRotation   int
	lastFlip       bool
	lastColorSpace *value.ColorSpace

	onError func(error)
}

func newCore(role config.Role, direction hwfallback.Direction, backends Backends, onError func(error)) *core {
	c := &core{
		id:        uuid.NewString(),
		backends:  backends,
		role:      role,
		direction: direction,
		machine:   state.New(),
		events:    events.New(),
		onError:   onError,
	}
	c.pipe = pipeline.New(func() { c.events.Dispatch(events.TypeDequeue) })
	c.pipe.Bind(c.machine.Generation)
	return c
}

// AttachTelemetry binds a structured logger to this instance; every
// configure/fail transition afterward logs through it with this
// instance's id, codec, and generation. Nil is a valid argument (detach).
func (c *core) AttachTelemetry(t *telemetry.Telemetry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tel = t.ForInstance(c.id, c.codec)
}

// QueueDepth is encodeQueueSize/decodeQueueSize.
func (c *core) QueueDepth() int { return c.pipe.QueueDepth() }

// State reports the current lifecycle state.
func (c *core) State() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// AddEventListener, RemoveEventListener, SetOnDequeue forward to the
// event dispatcher (spec.md §4.E).
func (c *core) AddEventListener(typ string, cb func(), capture bool) uint64 {
	return c.events.AddEventListener(typ, cb, capture)
}
func (c *core) RemoveEventListener(typ string, token uint64) { c.events.RemoveEventListener(typ, token) }
func (c *core) SetOnDequeue(cb func())                       { c.events.SetOnDequeue(cb) }

// selectBackend picks Hardware or Software per pref, consulting the
// hardware-fallback registry for "no-preference".
func (c *core) selectBackend(pref config.HardwareAcceleration) (backend.CodecBackend, bool) {
	reg := c.backends.fallback()
	switch pref {
	case config.HardwarePreferSW:
		return c.backends.Software, false
	case config.HardwarePreferHW:
		if c.backends.Hardware != nil {
			return c.backends.Hardware, true
		}
		return c.backends.Software, false
	default: // no-preference
		if c.backends.Hardware != nil && !reg.ShouldUseSoftware(c.codec, c.direction) {
			return c.backends.Hardware, true
		}
		return c.backends.Software, false
	}
}

// beginConfigure runs the synchronous half of configure (spec.md §4.B/§4.C):
// it does not open a backend handle; that happens on the pipeline worker.
// Callers must have already run the codec-specific syntactic validator.
func (c *core) beginConfigure(codec string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.closeTornDown(); err != nil {
		return 0, err
	}
	if c.hasHandle {
		c.releaseHandleLocked()
	}
	c.codec = codec
	c.describedOnce = false
	c.lastDescription = nil
	c.lastRotation = 0
	c.lastFlip = false
	c.lastColorSpace = nil
	if c.tel != nil {
		c.tel = c.tel.Rebind(codec)
	}
	if err := c.machine.Configure(); err != nil {
		return 0, err
	}
	return c.machine.Generation(), nil
}

func (c *core) closeTornDown() error {
	if c.machine.Current() == state.Closed {
		return codecerr.NewInvalidStateError("configure called on a closed codec")
	}
	return nil
}

// runConfigureOpen is enqueued on the pipeline by the per-type Configure
// method. open is called with whichever backend the preference/fallback
// logic selects; a failure reports NotSupportedError via onError and
// transitions the instance to closed, per spec.md §7 family 3.
func (c *core) runConfigureOpen(pref config.HardwareAcceleration, open func(backend.CodecBackend) (backend.Handle, error)) {
	chosen, isHW := c.selectBackend(pref)
	if chosen == nil {
		c.failConfigure(codecerr.NewNotSupportedError("no backend available for codec %q", c.codec))
		return
	}
	h, err := open(chosen)
	if err != nil {
		if isHW {
			c.backends.fallback().RecordFailure(c.codec, c.direction)
		}
		c.failConfigure(codecerr.NewNotSupportedError("backend rejected codec %q: %v", c.codec, err))
		return
	}

	c.mu.Lock()
	c.handle = h
	c.hasHandle = true
	c.chosenHW = isHW
	c.mu.Unlock()
}

func (c *core) failConfigure(err error) {
	c.mu.Lock()
	c.machine.ConfigureUnsupported()
	c.hasHandle = false
	gen := c.machine.Generation()
	tel := c.tel
	c.mu.Unlock()
	if tel != nil {
		tel.Error("configure failed", err, map[string]any{"generation": gen})
	}
	if c.onError != nil {
		c.onError(err)
	}
}

// fail reports a fatal encode/decode backend error (spec.md §7 family 4):
// the instance transitions to closed, the backend handle is released
// immediately, and any pending flush futures fail with the same error.
// The pipeline worker goroutine itself is left running, parked on its
// select, since Stop() would deadlock if called reentrantly from the
// worker's own goroutine; an explicit Close() later tears it down.
func (c *core) fail(err error) {
	c.mu.Lock()
	_ = c.machine.Close()
	c.releaseHandleLocked()
	gen := c.machine.Generation()
	tel := c.tel
	c.mu.Unlock()
	if tel != nil {
		tel.Error("fatal backend error", err, map[string]any{"generation": gen})
	}
	c.pipe.CancelAll(err)
	if c.onError != nil {
		c.onError(err)
	}
}

func (c *core) releaseHandleLocked() {
	if !c.hasHandle {
		return
	}
	chosen, _ := c.backendForHandleLocked()
	if chosen != nil {
		_ = chosen.Close(c.handle)
	}
	c.hasHandle = false
}

func (c *core) backendForHandleLocked() (backend.CodecBackend, bool) {
	if c.chosenHW {
		return c.backends.Hardware, true
	}
	return c.backends.Software, false
}

// encodeOrDecodeGeneration legality-checks an encode/decode call and
// returns the generation to tag the enqueued work item with.
func (c *core) encodeOrDecodeGeneration() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.EncodeOrDecode(); err != nil {
		return 0, err
	}
	return c.machine.Generation(), nil
}

func (c *core) withHandle(fn func(h backend.Handle, b backend.CodecBackend) error) error {
	c.mu.Lock()
	if !c.hasHandle {
		c.mu.Unlock()
		return codecerr.NewInvalidStateError("backend handle not open")
	}
	h := c.handle
	b, _ := c.backendForHandleLocked()
	c.mu.Unlock()
	return fn(h, b)
}

// Flush enqueues a barrier and waits for it, or for ctx to be cancelled
// (spec.md §5.1: ctx.Done() is treated like reset/close racing the
// future).
func (c *core) Flush(ctx context.Context) error {
	c.mu.Lock()
	if err := c.machine.Flush(); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.machine.Generation()
	c.mu.Unlock()

	f := c.pipe.EnqueueFlush(gen)
	select {
	case <-f.Done():
		return f.Wait()
	case <-ctx.Done():
		return codecerr.NewAbortError("flush cancelled: %v", ctx.Err())
	}
}

// Reset cancels outstanding work and returns to unconfigured (spec.md §4.C/§4.D).
func (c *core) Reset() error {
	c.mu.Lock()
	if err := c.machine.Reset(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseHandleLocked()
	c.mu.Unlock()
	c.pipe.CancelAll(codecerr.NewAbortError("flush superseded by reset"))
	return nil
}

// Close terminates the instance permanently and stops its worker goroutine.
func (c *core) Close() error {
	c.mu.Lock()
	if err := c.machine.Close(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseHandleLocked()
	c.mu.Unlock()
	c.pipe.CancelAll(codecerr.NewAbortError("flush superseded by close"))
	c.pipe.Stop()
	return nil
}

// noteDescription reports whether desc differs from the last description
// handed out (or none has been handed out yet since the last configure),
// and if so records it. Called from the pipeline worker's output-assembly
// step in each per-type facade to decide whether this output's metadata
// should carry a DecoderConfig (spec.md §3).
func (c *core) noteDescription(desc []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := !c.describedOnce || !bytes.Equal(desc, c.lastDescription)
	if changed {
		c.lastDescription = append([]byte(nil), desc...)
		c.describedOnce = true
	}
	return changed
}

// colorSpaceEqual reports whether a and b describe the same color space,
// treating two nil pointers as equal.
func colorSpaceEqual(a, b *value.ColorSpace) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// noteVideoDescription is noteDescription's video counterpart: it also
// compares the source frame's rotation, flip, and color space, since a
// VideoDecoderConfig carries all of these and any one changing means the
// next output must carry a fresh DecoderConfig (spec.md §3/§4.D).
func (c *core) noteVideoDescription(desc []byte, rotation int, flip bool, colorSpace *value.ColorSpace) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := !c.describedOnce ||
		!bytes.Equal(desc, c.lastDescription) ||
		rotation != c.lastRotation ||
		flip != c.lastFlip ||
		!colorSpaceEqual(colorSpace, c.lastColorSpace)
	if changed {
		c.lastDescription = append([]byte(nil), desc...)
		c.describedOnce = true
		c.lastRotation = rotation
		c.lastFlip = flip
		c.lastColorSpace = colorSpace
	}
	return changed
}

// encodingFailure wraps a backend error raised mid encode/decode as the
// EncodingError family member spec.md §7 family 4 names for this path.
func encodingFailure(err error) error {
	return codecerr.NewEncodingError("backend failure", err)
}
