package config

import "github.com/five82/webcodecsgo/internal/codecerr"

// ValidateVideoEncoderConfig performs the syntactic (phase 1) validation
// of spec.md §4.B: codec missing/empty, zero dimensions, zero aspect
// dimensions when present. Leading/trailing whitespace in Codec is not
// stripped or rejected here — "  vp09.00.10.08  " passes syntax and is
// later resolved to "valid but unsupported" by the backend.
func ValidateVideoEncoderConfig(c VideoEncoderConfig) error {
	if c.Codec == "" {
		return codecerr.NewTypeError("codec is required")
	}
	if c.Width == 0 || c.Height == 0 {
		return codecerr.NewTypeError("width and height must be non-zero")
	}
	if c.DisplayAspectWidth != nil && *c.DisplayAspectWidth == 0 {
		return codecerr.NewTypeError("displayAspectWidth must be non-zero when present")
	}
	if c.DisplayAspectHeight != nil && *c.DisplayAspectHeight == 0 {
		return codecerr.NewTypeError("displayAspectHeight must be non-zero when present")
	}
	return nil
}

// ValidateVideoDecoderConfig performs syntactic validation for decoder
// configuration.
func ValidateVideoDecoderConfig(c VideoDecoderConfig) error {
	if c.Codec == "" {
		return codecerr.NewTypeError("codec is required")
	}
	if c.CodedWidth != 0 && c.CodedHeight == 0 {
		return codecerr.NewTypeError("codedHeight must be non-zero when codedWidth is present")
	}
	if c.CodedHeight != 0 && c.CodedWidth == 0 {
		return codecerr.NewTypeError("codedWidth must be non-zero when codedHeight is present")
	}
	return nil
}

// ValidateAudioEncoderConfig performs syntactic validation for an audio
// encoder configuration.
func ValidateAudioEncoderConfig(c AudioEncoderConfig) error {
	if c.Codec == "" {
		return codecerr.NewTypeError("codec is required")
	}
	if c.SampleRate == 0 {
		return codecerr.NewTypeError("sampleRate must be non-zero")
	}
	if c.NumberOfChannels == 0 {
		return codecerr.NewTypeError("numberOfChannels must be non-zero")
	}
	return nil
}

// ValidateAudioDecoderConfig performs syntactic validation for an audio
// decoder configuration.
func ValidateAudioDecoderConfig(c AudioDecoderConfig) error {
	if c.Codec == "" {
		return codecerr.NewTypeError("codec is required")
	}
	if c.SampleRate == 0 {
		return codecerr.NewTypeError("sampleRate must be non-zero")
	}
	if c.NumberOfChannels == 0 {
		return codecerr.NewTypeError("numberOfChannels must be non-zero")
	}
	return nil
}
