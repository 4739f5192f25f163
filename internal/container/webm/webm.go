package webm

import (
	"bytes"
	"sync"

	"github.com/five82/webcodecsgo/internal/codecerr"
)

// TrackConfig describes one track being added to a muxer, mirroring the
// shape used by the sibling mp4 package so callers can treat both
// container backends uniformly.
type TrackConfig struct {
	Codec            string // "V_VP8", "V_VP9", "V_AV1", "A_OPUS", ...
	Width, Height    uint32 // video only
	SampleRate       float64
	NumberOfChannels uint16
	Description      []byte // codec-private data, e.g. Opus ID header
}

// Chunk is one encoded sample handed to the muxer. PTS and Duration are
// in microseconds; Matroska timecodes are written at millisecond scale
// internally.
type Chunk struct {
	Data     []byte
	PTS      uint64
	Duration uint32
	IsKey    bool
}

// Options mirrors the muxer begin() options of spec.md §4.G. WebM and
// MKV share this package: WebM restricts the codec set to VP8/VP9/AV1
// video and Opus/Vorbis audio, which this package does not enforce
// itself — callers pick the DocType and are responsible for only
// feeding it WebM-legal codecs when Matroska is false.
type Options struct {
	Matroska bool // DocType "matroska" instead of "webm"
}

const clusterTimecodeLimitMs = 30000 // start a new cluster roughly every 30s, per Matroska convention

type trackState struct {
	cfg       TrackConfig
	isVideo   bool
	trackNum  uint64
}

// Muxer builds a WebM/MKV file incrementally, one SimpleBlock per
// WriteChunk, grounded on the reference mkvwriter's writeSimpleBlock:
// every cluster begins with a Timecode element, and blocks inside it
// carry only a signed 16-bit offset from that base. It is not safe for
// concurrent use.
type Muxer struct {
	mu              sync.Mutex
	opts            Options
	videoTrack      *trackState
	audioTrack      *trackState
	headerWritten   bool
	clusterOpen     bool
	clusterBaseMs   int64
	buf             bytes.Buffer
	finalized       bool
}

// NewMuxer returns a muxer configured with options.
func NewMuxer(opts Options) (*Muxer, error) {
	return &Muxer{opts: opts}, nil
}

// AddVideoTrack registers the (at most one) video track.
func (m *Muxer) AddVideoTrack(cfg TrackConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.videoTrack != nil {
		return codecerr.NewInvalidStateError("addVideoTrack called twice")
	}
	if m.headerWritten {
		return codecerr.NewInvalidStateError("addVideoTrack called after streaming began")
	}
	m.videoTrack = &trackState{cfg: cfg, isVideo: true, trackNum: 1}
	return nil
}

// AddAudioTrack registers the (at most one) audio track.
func (m *Muxer) AddAudioTrack(cfg TrackConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.audioTrack != nil {
		return codecerr.NewInvalidStateError("addAudioTrack called twice")
	}
	if m.headerWritten {
		return codecerr.NewInvalidStateError("addAudioTrack called after streaming began")
	}
	m.audioTrack = &trackState{cfg: cfg, isVideo: false, trackNum: 2}
	return nil
}

func (m *Muxer) docType() string {
	if m.opts.Matroska {
		return "matroska"
	}
	return "webm"
}

// writeHeadersOnce emits the EBML header, Segment start (unknown size,
// since total length is not known until Finalize), Info, and Tracks
// elements exactly once, the same ordering the reference writer uses:
// writeEBMLHeader, writeSegmentHeader, writeInfo, writeTracks.
func (m *Muxer) writeHeadersOnce() {
	if m.headerWritten {
		return
	}
	m.headerWritten = true

	var ebmlBody []byte
	ebmlBody = writeElement(ebmlBody, idEBMLVersion, writeUint(1))
	ebmlBody = writeElement(ebmlBody, idEBMLReadVersion, writeUint(1))
	ebmlBody = writeElement(ebmlBody, idEBMLMaxIDLength, writeUint(4))
	ebmlBody = writeElement(ebmlBody, idEBMLMaxSizeLength, writeUint(8))
	ebmlBody = writeElement(ebmlBody, idDocType, writeString(m.docType()))
	ebmlBody = writeElement(ebmlBody, idDocTypeVersion, writeUint(2))
	ebmlBody = writeElement(ebmlBody, idDocTypeReadVersion, writeUint(2))
	m.buf.Write(writeID(nil, idEBML))
	m.buf.Write(writeVarInt(nil, uint64(len(ebmlBody))))
	m.buf.Write(ebmlBody)

	m.buf.Write(writeID(nil, idSegment))
	m.buf.Write(writeUnknownSize(nil))

	var infoBody []byte
	infoBody = writeElement(infoBody, idTimecodeScale, writeUint(1_000_000)) // nanoseconds per timecode tick: 1ms
	infoBody = writeElement(infoBody, idMuxingApp, writeString("webcodecsgo"))
	infoBody = writeElement(infoBody, idWritingApp, writeString("webcodecsgo"))
	m.buf.Write(writeElement(nil, idInfo, infoBody))

	var tracksBody []byte
	if m.videoTrack != nil {
		tracksBody = append(tracksBody, m.encodeTrackEntry(m.videoTrack)...)
	}
	if m.audioTrack != nil {
		tracksBody = append(tracksBody, m.encodeTrackEntry(m.audioTrack)...)
	}
	m.buf.Write(writeElement(nil, idTracks, tracksBody))
}

func (m *Muxer) encodeTrackEntry(t *trackState) []byte {
	var body []byte
	body = writeElement(body, idTrackNumber, writeUint(t.trackNum))
	body = writeElement(body, idTrackUID, writeUint(t.trackNum))
	if t.isVideo {
		body = writeElement(body, idTrackType, writeUint(trackTypeVideo))
	} else {
		body = writeElement(body, idTrackType, writeUint(trackTypeAudio))
	}
	body = writeElement(body, idCodecID, writeString(t.cfg.Codec))
	if len(t.cfg.Description) > 0 {
		body = writeElement(body, idCodecPrivate, t.cfg.Description)
	}
	if t.isVideo {
		var videoBody []byte
		videoBody = writeElement(videoBody, idPixelWidth, writeUint(uint64(t.cfg.Width)))
		videoBody = writeElement(videoBody, idPixelHeight, writeUint(uint64(t.cfg.Height)))
		body = writeElement(body, idVideo, videoBody)
	} else {
		var audioBody []byte
		audioBody = writeElement(audioBody, idSamplingFrequency, writeFloat64(t.cfg.SampleRate))
		audioBody = writeElement(audioBody, idChannels, writeUint(uint64(t.cfg.NumberOfChannels)))
		body = writeElement(body, idAudio, audioBody)
	}
	return writeElement(nil, idTrackEntry, body)
}

// startClusterIfNeeded opens a new Cluster at ptsMs when none is open, or
// when the running cluster has grown past clusterTimecodeLimitMs, so
// SimpleBlock's 16-bit relative timecode never overflows.
func (m *Muxer) startClusterIfNeeded(ptsMs int64) {
	if m.clusterOpen && ptsMs-m.clusterBaseMs < clusterTimecodeLimitMs {
		return
	}
	m.buf.Write(writeID(nil, idCluster))
	m.buf.Write(writeUnknownSize(nil))
	m.buf.Write(writeElement(nil, idTimecode, writeUint(uint64(ptsMs))))
	m.clusterOpen = true
	m.clusterBaseMs = ptsMs
}

// WriteChunk appends an encoded sample to trackIndex (0 = video, 1 = audio)
// as one SimpleBlock, framed as [track-number varint][int16 relative
// timecode][flags byte][frame bytes], per the reference writer's
// writeSimpleBlock.
func (m *Muxer) WriteChunk(trackIndex int, c Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return codecerr.NewInvalidStateError("writeChunk called after finalize")
	}

	var track *trackState
	switch trackIndex {
	case 0:
		track = m.videoTrack
	case 1:
		track = m.audioTrack
	}
	if track == nil {
		return codecerr.NewInvalidStateError("writeChunk for a track that was never added")
	}

	m.writeHeadersOnce()

	ptsMs := int64(c.PTS / 1000)
	m.startClusterIfNeeded(ptsMs)

	rel := ptsMs - m.clusterBaseMs
	if rel > 32767 || rel < -32768 {
		return codecerr.NewDataError("chunk timestamp exceeds cluster's 16-bit relative timecode range")
	}

	var flags byte
	if c.IsKey {
		flags = 0x80
	}

	var block []byte
	block = writeVarInt(block, track.trackNum)
	block = append(block, byte(int16(rel)>>8), byte(int16(rel)))
	block = append(block, flags)
	block = append(block, c.Data...)

	m.buf.Write(writeElement(nil, idSimpleBlock, block))
	return nil
}

// Flush is a no-op: every WriteChunk already appends a self-contained
// element to the buffer that Read drains, so there is nothing held back.
func (m *Muxer) Flush() error {
	return nil
}

// Finalize returns the complete file bytes and locks the muxer against
// further writes. Segment and any open Cluster were written with the
// reserved unknown-size marker, which is valid Matroska and does not
// require patching a real size back in afterward.
func (m *Muxer) Finalize() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return nil, codecerr.NewInvalidStateError("finalize called twice")
	}
	m.writeHeadersOnce()
	m.finalized = true
	out := make([]byte, m.buf.Len())
	copy(out, m.buf.Bytes())
	return out, nil
}

// Read returns the next available streamed bytes, or nil if none are
// buffered yet.
func (m *Muxer) Read() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buf.Len() == 0 {
		return nil
	}
	out := make([]byte, m.buf.Len())
	copy(out, m.buf.Bytes())
	m.buf.Reset()
	return out
}

// IsFinished reports whether Finalize has been called.
func (m *Muxer) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalized
}

// HasMagicBytes reports whether b starts with the EBML magic number, per
// spec.md §4.G / §6's container-detection rule (shared by WebM and MKV).
func HasMagicBytes(b []byte) bool {
	return len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3
}
