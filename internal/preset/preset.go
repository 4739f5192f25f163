// Package preset supplies resolution-tiered encoding defaults: when the
// demo CLI is given no bitrate, it asks this package for a default
// rather than encoding at an undefined rate. The codec backends do not
// call it.
//
// Adapted from the teacher's batch-encoder Config/CRFForWidth: the
// three-tier SD/HD/UHD quality ladder survives, retargeted from x264-style
// CRF values to bits-per-second targets since CodecBackend.Encode works
// against VideoEncoderConfig.Bitrate, not a CRF knob.
package preset

// Resolution tier thresholds, unchanged from the teacher.
const (
	HDWidthThreshold  uint32 = 1920
	UHDWidthThreshold uint32 = 3840
)

// Default bitrates (bits per second) by resolution tier.
const (
	DefaultBitrateSD  uint64 = 2_000_000
	DefaultBitrateHD  uint64 = 6_000_000
	DefaultBitrateUHD uint64 = 16_000_000
)

// DefaultThreadsPerWorker of 0 means auto-calculate based on CPU
// topology. No code in this module reads it.
const DefaultThreadsPerWorker int = 0

// BitrateForWidth returns the default encoder bitrate for a frame of the
// given coded width, tiered SD/HD/UHD exactly as the teacher tiered CRF.
func BitrateForWidth(width uint32) uint64 {
	switch {
	case width >= UHDWidthThreshold:
		return DefaultBitrateUHD
	case width >= HDWidthThreshold:
		return DefaultBitrateHD
	default:
		return DefaultBitrateSD
	}
}
