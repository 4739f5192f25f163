package codec

import "github.com/five82/webcodecsgo/internal/config"

// IsVideoEncoderConfigSupported is the static isConfigSupported entry
// point (spec.md §4.B), usable without constructing an instance.
func IsVideoEncoderConfigSupported(backends Backends, c config.VideoEncoderConfig) (config.SupportResult[config.VideoEncoderConfig], error) {
	return config.IsVideoEncoderConfigSupported(backends.Prober(), c)
}

func IsVideoDecoderConfigSupported(backends Backends, c config.VideoDecoderConfig) (config.SupportResult[config.VideoDecoderConfig], error) {
	return config.IsVideoDecoderConfigSupported(backends.Prober(), c)
}

func IsAudioEncoderConfigSupported(backends Backends, c config.AudioEncoderConfig) (config.SupportResult[config.AudioEncoderConfig], error) {
	return config.IsAudioEncoderConfigSupported(backends.Prober(), c)
}

func IsAudioDecoderConfigSupported(backends Backends, c config.AudioDecoderConfig) (config.SupportResult[config.AudioDecoderConfig], error) {
	return config.IsAudioDecoderConfigSupported(backends.Prober(), c)
}
