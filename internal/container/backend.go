// Package container defines the ContainerBackend contract (spec.md §4.G,
// §6): a symmetric mux/demux view shared by every concrete container
// format, plus thin adapters that let internal/container/mp4 and
// internal/container/webm satisfy it despite their package-local type
// differences (mp4ff samples are uint32 sample-rate integers; Matroska
// tracks carry a float64 sampling frequency).
package container

import (
	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/container/mp4"
	"github.com/five82/webcodecsgo/internal/container/webm"
)

// Format names a concrete container family a Muxer/Demuxer speaks.
type Format int

const (
	FormatMP4 Format = iota
	FormatWebM
	FormatMatroska
)

// TrackConfig is the format-agnostic track descriptor passed to
// AddVideoTrack/AddAudioTrack.
type TrackConfig struct {
	Codec            string
	Width, Height    uint32
	SampleRate       float64
	NumberOfChannels uint32
	Description      []byte
}

// ChunkInput is one encoded sample handed to a Muxer.
type ChunkInput struct {
	Data     []byte
	PTS      uint64
	Duration uint32
	IsKey    bool
}

// TrackInfo is the demux-side counterpart of TrackConfig.
type TrackInfo struct {
	Index            int
	IsVideo          bool
	Codec            string
	Width, Height    uint32
	SampleRate       float64
	NumberOfChannels uint32
	Description      []byte
	DurationUs       uint64
}

// Packet is one demuxed sample, or EndOfStream via a sentinel error from
// ReadPacket (io.EOF, matching the mp4/webm demuxers beneath this).
type Packet struct {
	TrackIndex int
	Data       []byte
	PTS        uint64
	Duration   uint32
	IsKey      bool
}

// Muxer is the mux-side ContainerBackend contract: begin() is NewMuxer
// below, addVideoTrack/addAudioTrack/writeChunk/flush/finalize/read/
// isFinished map directly onto the named methods.
type Muxer interface {
	AddVideoTrack(TrackConfig) error
	AddAudioTrack(TrackConfig) error
	WriteChunk(trackIndex int, c ChunkInput) error
	Flush() error
	Finalize() ([]byte, error)
	Read() []byte
	IsFinished() bool
}

// Demuxer is the demux-side ContainerBackend contract: open() is
// NewDemuxer+LoadBuffer below, tracks/duration/readPacket/seek map
// directly onto the named methods. decoderConfig(trackIndex) is
// TrackInfo's Codec/Width/Height/SampleRate/NumberOfChannels/Description
// fields, already present on each TrackInfo rather than a separate call.
type Demuxer interface {
	LoadBuffer([]byte) error
	Tracks() []TrackInfo
	Duration() uint64
	ReadPacket(trackIndex int) (Packet, error)
	Seek(trackIndex int, ptsUs uint64) error
}

// NewMuxer returns a Muxer for format, with fastStart only meaningful
// for FormatMP4 (rejected in combination with fragmented there).
func NewMuxer(format Format, fastStart, fragmented bool) (Muxer, error) {
	switch format {
	case FormatMP4:
		m, err := mp4.NewMuxer(mp4.Options{FastStart: fastStart, Fragmented: fragmented})
		if err != nil {
			return nil, err
		}
		return &mp4MuxerAdapter{m: m}, nil
	case FormatWebM:
		m, err := webm.NewMuxer(webm.Options{Matroska: false})
		if err != nil {
			return nil, err
		}
		return &webmMuxerAdapter{m: m}, nil
	case FormatMatroska:
		m, err := webm.NewMuxer(webm.Options{Matroska: true})
		if err != nil {
			return nil, err
		}
		return &webmMuxerAdapter{m: m}, nil
	default:
		return nil, codecerr.NewTypeError("unknown container format %d", format)
	}
}

// DetectFormat inspects b's magic bytes per spec.md §6 ("MP4 ...ftyp,
// WebM/MKV 1A 45 DF A3") and returns the matching format, or false if
// neither pattern matches.
func DetectFormat(b []byte) (Format, bool) {
	if mp4.HasMagicBytes(b) {
		return FormatMP4, true
	}
	if webm.HasMagicBytes(b) {
		return FormatWebM, true
	}
	return 0, false
}

// NewDemuxerFromBytes detects b's container format and returns a loaded
// Demuxer over it.
func NewDemuxerFromBytes(b []byte) (Demuxer, error) {
	format, ok := DetectFormat(b)
	if !ok {
		return nil, codecerr.NewDataError("unrecognised container magic bytes")
	}
	switch format {
	case FormatMP4:
		d := mp4.NewDemuxer()
		if err := d.LoadBuffer(b); err != nil {
			return nil, err
		}
		return &mp4DemuxerAdapter{d: d}, nil
	default:
		d := webm.NewDemuxer()
		if err := d.LoadBuffer(b); err != nil {
			return nil, err
		}
		return &webmDemuxerAdapter{d: d}, nil
	}
}

type mp4MuxerAdapter struct{ m *mp4.Muxer }

func (a *mp4MuxerAdapter) AddVideoTrack(c TrackConfig) error {
	return a.m.AddVideoTrack(mp4.TrackConfig{
		Codec: c.Codec, Width: c.Width, Height: c.Height, Description: c.Description,
	})
}

func (a *mp4MuxerAdapter) AddAudioTrack(c TrackConfig) error {
	return a.m.AddAudioTrack(mp4.TrackConfig{
		Codec: c.Codec, SampleRate: uint32(c.SampleRate), NumberOfChannels: uint16(c.NumberOfChannels), Description: c.Description,
	})
}

func (a *mp4MuxerAdapter) WriteChunk(trackIndex int, c ChunkInput) error {
	return a.m.WriteChunk(trackIndex, mp4.Chunk{Data: c.Data, PTS: c.PTS, Duration: c.Duration, IsKey: c.IsKey})
}

func (a *mp4MuxerAdapter) Flush() error             { return a.m.Flush() }
func (a *mp4MuxerAdapter) Finalize() ([]byte, error) { return a.m.Finalize() }
func (a *mp4MuxerAdapter) Read() []byte             { return a.m.Read() }
func (a *mp4MuxerAdapter) IsFinished() bool         { return a.m.IsFinished() }

type mp4DemuxerAdapter struct{ d *mp4.Demuxer }

func (a *mp4DemuxerAdapter) LoadBuffer(b []byte) error { return a.d.LoadBuffer(b) }

func (a *mp4DemuxerAdapter) Tracks() []TrackInfo {
	src := a.d.Tracks()
	out := make([]TrackInfo, len(src))
	for i, t := range src {
		out[i] = TrackInfo{
			Index: t.Index, IsVideo: t.IsVideo, Codec: t.Codec,
			Width: t.Width, Height: t.Height, SampleRate: float64(t.SampleRate),
			NumberOfChannels: uint32(t.NumberOfChannels), Description: t.Description, DurationUs: t.DurationUs,
		}
	}
	return out
}

func (a *mp4DemuxerAdapter) Duration() uint64 { return a.d.Duration() }

func (a *mp4DemuxerAdapter) ReadPacket(trackIndex int) (Packet, error) {
	p, err := a.d.ReadPacket(trackIndex)
	if err != nil {
		return Packet{}, err
	}
	return Packet{TrackIndex: p.TrackIndex, Data: p.Data, PTS: p.PTS, Duration: p.Duration, IsKey: p.IsKey}, nil
}

func (a *mp4DemuxerAdapter) Seek(trackIndex int, ptsUs uint64) error { return a.d.Seek(trackIndex, ptsUs) }

type webmMuxerAdapter struct{ m *webm.Muxer }

func (a *webmMuxerAdapter) AddVideoTrack(c TrackConfig) error {
	return a.m.AddVideoTrack(webm.TrackConfig{
		Codec: c.Codec, Width: c.Width, Height: c.Height, Description: c.Description,
	})
}

func (a *webmMuxerAdapter) AddAudioTrack(c TrackConfig) error {
	return a.m.AddAudioTrack(webm.TrackConfig{
		Codec: c.Codec, SampleRate: c.SampleRate, NumberOfChannels: uint16(c.NumberOfChannels), Description: c.Description,
	})
}

func (a *webmMuxerAdapter) WriteChunk(trackIndex int, c ChunkInput) error {
	return a.m.WriteChunk(trackIndex, webm.Chunk{Data: c.Data, PTS: c.PTS, Duration: c.Duration, IsKey: c.IsKey})
}

func (a *webmMuxerAdapter) Flush() error             { return a.m.Flush() }
func (a *webmMuxerAdapter) Finalize() ([]byte, error) { return a.m.Finalize() }
func (a *webmMuxerAdapter) Read() []byte             { return a.m.Read() }
func (a *webmMuxerAdapter) IsFinished() bool         { return a.m.IsFinished() }

type webmDemuxerAdapter struct{ d *webm.Demuxer }

func (a *webmDemuxerAdapter) LoadBuffer(b []byte) error { return a.d.LoadBuffer(b) }

func (a *webmDemuxerAdapter) Tracks() []TrackInfo {
	src := a.d.Tracks()
	out := make([]TrackInfo, len(src))
	for i, t := range src {
		out[i] = TrackInfo{
			Index: t.Index, IsVideo: t.IsVideo, Codec: t.Codec,
			Width: t.Width, Height: t.Height, SampleRate: t.SampleRate,
			NumberOfChannels: uint32(t.NumberOfChannels), Description: t.Description, DurationUs: t.DurationUs,
		}
	}
	return out
}

func (a *webmDemuxerAdapter) Duration() uint64 { return a.d.Duration() }

func (a *webmDemuxerAdapter) ReadPacket(trackIndex int) (Packet, error) {
	p, err := a.d.ReadPacket(trackIndex)
	if err != nil {
		return Packet{}, err
	}
	return Packet{TrackIndex: p.TrackIndex, Data: p.Data, PTS: p.PTS, Duration: p.Duration, IsKey: p.IsKey}, nil
}

func (a *webmDemuxerAdapter) Seek(trackIndex int, ptsUs uint64) error { return a.d.Seek(trackIndex, ptsUs) }
