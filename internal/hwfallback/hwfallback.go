// Package hwfallback implements the process-wide hardware-fallback
// registry of spec.md §4.F: a per-{codec,direction} failure counter that
// steers "no-preference" configures toward software once hardware has
// proven unreliable for that key.
package hwfallback

import "sync"

// FailureThreshold is the number of observed hardware-backend failures
// after which "no-preference" configures for that key fall back to
// software silently.
const FailureThreshold = 3

// Direction mirrors config.Role without importing the config package
// (hwfallback is a lower-level, dependency-free registry consulted by
// backend implementations).
type Direction string

const (
	DirectionVideoEncoder Direction = "video-encoder"
	DirectionVideoDecoder Direction = "video-decoder"
	DirectionAudioEncoder Direction = "audio-encoder"
	DirectionAudioDecoder Direction = "audio-decoder"
)

type key struct {
	codec     string
	direction Direction
}

// Registry is the process-wide counter set. The package-level Default
// instance is what production code consults; tests construct their own
// Registry to avoid cross-test interference, or call
// Default.ResetHardwareFallbackState() between tests.
type Registry struct {
	mu       sync.Mutex
	failures map[key]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{failures: make(map[key]int)}
}

// Default is the process-wide registry consulted by CodecBackend
// implementations when hardwareAcceleration is "no-preference".
var Default = NewRegistry()

// RecordFailure increments the failure counter for {codec, direction}.
// Called when the hardware-accelerated backend fails to produce any
// output after configure.
func (r *Registry) RecordFailure(codec string, direction Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[key{codec, direction}]++
}

// ShouldUseSoftware reports whether {codec, direction} has crossed
// FailureThreshold and a "no-preference" configure should silently pick
// software instead of hardware.
func (r *Registry) ShouldUseSoftware(codec string, direction Direction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[key{codec, direction}] >= FailureThreshold
}

// ResetHardwareFallbackState clears all counters. Exposed so test suites
// can call it between tests, mirroring spec.md's expectation.
func (r *Registry) ResetHardwareFallbackState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = make(map[key]int)
}
