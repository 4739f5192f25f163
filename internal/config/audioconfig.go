package config

// AudioEncoderConfig mirrors the AudioEncoderConfig init dictionary.
type AudioEncoderConfig struct {
	Codec            string
	SampleRate       float64
	NumberOfChannels uint32
	Bitrate          *uint64
	BitrateMode      BitrateMode
}

// AudioDecoderConfig mirrors the AudioDecoderConfig init dictionary.
type AudioDecoderConfig struct {
	Codec            string
	SampleRate       float64
	NumberOfChannels uint32
	Description      []byte
}
