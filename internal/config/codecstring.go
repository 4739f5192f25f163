// Package config implements the codec-configuration validator: syntactic
// validation of configuration dictionaries, codec-string parsing, and
// the isConfigSupported protocol (spec.md §4.B).
package config

import "strings"

// Family identifies the broad codec family a codec string names.
type Family string

const (
	FamilyAVC     Family = "avc"
	FamilyHEVC    Family = "hevc"
	FamilyVP8     Family = "vp8"
	FamilyVP9     Family = "vp9"
	FamilyAV1     Family = "av1"
	FamilyOpus    Family = "opus"
	FamilyAAC     Family = "aac"
	FamilyFLAC    Family = "flac"
	FamilyVorbis  Family = "vorbis"
	FamilyPCM     Family = "pcm"
	FamilyUnknown Family = "unknown"
)

// CodecDescriptor is the structured form of a codec string, used by
// syntactic validation and by CodecBackend.ProbeSupport.
type CodecDescriptor struct {
	Family  Family
	Raw     string
	Profile string
	Level   string
	// BitDepth is 0 when the codec string does not encode a bit depth.
	BitDepth int
}

// ParseCodecString parses the W3C codec-string grammar into a
// CodecDescriptor. Unknown strings are not an error here — syntactic
// validation only rejects an empty codec string; an unrecognised but
// non-empty string is routed to FamilyUnknown and later resolved to
// "valid but unsupported" by the backend, per spec.md §4.B. Matching is
// case-sensitive: "AVC1.42001E" does not normalise to "avc1..." and is
// routed to FamilyUnknown.
func ParseCodecString(s string) CodecDescriptor {
	parts := strings.Split(s, ".")

	switch {
	case strings.HasPrefix(s, "avc1") || strings.HasPrefix(s, "avc3"):
		d := CodecDescriptor{Family: FamilyAVC, Raw: s}
		if len(parts) > 1 && len(parts[1]) == 6 {
			d.Profile = parts[1][0:2]
			d.Level = parts[1][4:6]
		}
		return d
	case strings.HasPrefix(s, "hev1") || strings.HasPrefix(s, "hvc1"):
		return CodecDescriptor{Family: FamilyHEVC, Raw: s}
	case s == "vp8" || strings.HasPrefix(s, "vp8."):
		return CodecDescriptor{Family: FamilyVP8, Raw: s}
	case strings.HasPrefix(s, "vp09"):
		d := CodecDescriptor{Family: FamilyVP9, Raw: s}
		if len(parts) >= 4 {
			d.Profile = parts[1]
			d.Level = parts[2]
		}
		return d
	case strings.HasPrefix(s, "av01"):
		d := CodecDescriptor{Family: FamilyAV1, Raw: s}
		if len(parts) >= 4 {
			d.Profile = parts[1]
			d.Level = parts[2]
		}
		return d
	case s == "opus":
		return CodecDescriptor{Family: FamilyOpus, Raw: s}
	case strings.HasPrefix(s, "mp4a"):
		return CodecDescriptor{Family: FamilyAAC, Raw: s}
	case s == "flac":
		return CodecDescriptor{Family: FamilyFLAC, Raw: s}
	case s == "vorbis":
		return CodecDescriptor{Family: FamilyVorbis, Raw: s}
	case strings.HasPrefix(s, "pcm-"):
		return CodecDescriptor{Family: FamilyPCM, Raw: s}
	default:
		return CodecDescriptor{Family: FamilyUnknown, Raw: s}
	}
}

// IsVideoFamily reports whether family names a video codec.
func IsVideoFamily(f Family) bool {
	switch f {
	case FamilyAVC, FamilyHEVC, FamilyVP8, FamilyVP9, FamilyAV1:
		return true
	default:
		return false
	}
}

// IsAudioFamily reports whether family names an audio codec.
func IsAudioFamily(f Family) bool {
	switch f {
	case FamilyOpus, FamilyAAC, FamilyFLAC, FamilyVorbis, FamilyPCM:
		return true
	default:
		return false
	}
}
