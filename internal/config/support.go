package config

// Role identifies which of the four codec directions a configuration is
// being probed for.
type Role string

const (
	RoleVideoEncoder Role = "video-encoder"
	RoleVideoDecoder Role = "video-decoder"
	RoleAudioEncoder Role = "audio-encoder"
	RoleAudioDecoder Role = "audio-decoder"
)

// Prober is the semantic-validation collaborator: it asks a CodecBackend
// whether it can realise a given codec string for a given role. This is
// the config package's view of the backend.CodecBackend interface
// (spec.md §6); backend implementations satisfy it without config
// importing backend, avoiding an import cycle.
type Prober interface {
	ProbeSupport(codec string, role Role) bool
}

// SupportResult is the {supported, config} pair isConfigSupported
// returns. isConfigSupported never mutates any codec instance: it is a
// pure function of (backend, config).
type SupportResult[T any] struct {
	Supported bool
	Config    T
}

// IsVideoEncoderConfigSupported runs the two-phase validation of
// spec.md §4.B: syntactic validation first (returns a TypeError
// synchronously), then semantic validation via prober (returns
// {supported:false} rather than an error for a valid-but-unsupported
// config).
func IsVideoEncoderConfigSupported(prober Prober, c VideoEncoderConfig) (SupportResult[VideoEncoderConfig], error) {
	if err := ValidateVideoEncoderConfig(c); err != nil {
		return SupportResult[VideoEncoderConfig]{}, err
	}
	supported := prober.ProbeSupport(c.Codec, RoleVideoEncoder)
	return SupportResult[VideoEncoderConfig]{Supported: supported, Config: c}, nil
}

// IsVideoDecoderConfigSupported is the decoder-side counterpart.
func IsVideoDecoderConfigSupported(prober Prober, c VideoDecoderConfig) (SupportResult[VideoDecoderConfig], error) {
	if err := ValidateVideoDecoderConfig(c); err != nil {
		return SupportResult[VideoDecoderConfig]{}, err
	}
	supported := prober.ProbeSupport(c.Codec, RoleVideoDecoder)
	return SupportResult[VideoDecoderConfig]{Supported: supported, Config: c}, nil
}

// IsAudioEncoderConfigSupported is the audio-encoder counterpart.
func IsAudioEncoderConfigSupported(prober Prober, c AudioEncoderConfig) (SupportResult[AudioEncoderConfig], error) {
	if err := ValidateAudioEncoderConfig(c); err != nil {
		return SupportResult[AudioEncoderConfig]{}, err
	}
	supported := prober.ProbeSupport(c.Codec, RoleAudioEncoder)
	return SupportResult[AudioEncoderConfig]{Supported: supported, Config: c}, nil
}

// IsAudioDecoderConfigSupported is the audio-decoder counterpart.
func IsAudioDecoderConfigSupported(prober Prober, c AudioDecoderConfig) (SupportResult[AudioDecoderConfig], error) {
	if err := ValidateAudioDecoderConfig(c); err != nil {
		return SupportResult[AudioDecoderConfig]{}, err
	}
	supported := prober.ProbeSupport(c.Codec, RoleAudioDecoder)
	return SupportResult[AudioDecoderConfig]{Supported: supported, Config: c}, nil
}
