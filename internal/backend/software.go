package backend

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/config"
)

// softwareSupportedFamilies lists the codec families the software
// backend can always claim, independent of the host's native libraries.
// It exists so tests and environments without FFmpeg/GStreamer installed
// still exercise the full configure/encode/decode/flush lifecycle.
var softwareSupportedFamilies = map[config.Family]bool{
	config.FamilyAVC:  true,
	config.FamilyVP8:  true,
	config.FamilyVP9:  true,
	config.FamilyAV1:  true,
	config.FamilyOpus: true,
	config.FamilyAAC:  true,
	config.FamilyPCM:  true,
}

type softwareStream struct {
	isEncoder bool
	params    EncoderParams
	decParams DecoderParams

	mu      sync.Mutex
	pending []Output
	seenKey bool
}

// Software is the dependency-free reference CodecBackend. Its "bitstream"
// is not a real AVC/VP9/AV1/Opus payload: each packet is a small
// self-describing record (one keyframe-flag byte, then the frame's raw
// plane bytes) that Software itself can parse back on the decode side. This keeps the
// encode→mux→demux→decode round trip exercisable and deterministic
// without binding to a real codec library, exactly the role the teacher's
// exec.Cmd-based encoder played for SvtAv1EncApp: a concrete, runnable
// stand-in behind a narrow interface.
type Software struct {
	mu      sync.Mutex
	streams map[Handle]*softwareStream
	nextID  atomic.Uint64
}

// NewSoftware returns a ready-to-use software backend.
func NewSoftware() *Software {
	return &Software{streams: make(map[Handle]*softwareStream)}
}

func (s *Software) alloc(stream *softwareStream) Handle {
	id := Handle(s.nextID.Add(1))
	s.mu.Lock()
	s.streams[id] = stream
	s.mu.Unlock()
	return id
}

func (s *Software) get(h Handle) (*softwareStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[h]
	if !ok {
		return nil, codecerr.NewDataError("unknown backend handle")
	}
	return st, nil
}

func (s *Software) OpenEncoder(codec string, role config.Role, params EncoderParams) (Handle, error) {
	if !s.ProbeSupport(codec, role) {
		return 0, codecerr.NewNotSupportedError(fmt.Sprintf("software backend cannot encode %q", codec))
	}
	return s.alloc(&softwareStream{isEncoder: true, params: params}), nil
}

func (s *Software) OpenDecoder(codec string, role config.Role, params DecoderParams) (Handle, error) {
	if !s.ProbeSupport(codec, role) {
		return 0, codecerr.NewNotSupportedError(fmt.Sprintf("software backend cannot decode %q", codec))
	}
	return s.alloc(&softwareStream{isEncoder: false, decParams: params}), nil
}

// FeedFrame packs the plane bytes into one packet record, tagged with
// the requested key-frame flag. Every call is treated as producible
// immediately: the software backend has no internal buffering delay.
// opts.Quantizer is accepted but ignored: this backend has no real rate
// control to steer with a per-frame quantizer.
func (s *Software) FeedFrame(h Handle, planes [][]byte, pts int64, opts FrameOptions) error {
	st, err := s.get(h)
	if err != nil {
		return err
	}
	if !st.isEncoder {
		return codecerr.NewInvalidStateError("FeedFrame on a decoder handle")
	}

	total := 0
	for _, p := range planes {
		total += len(p)
	}
	payload := make([]byte, 0, total+1)
	payload = append(payload, boolByte(opts.KeyFrame))
	for _, p := range planes {
		payload = append(payload, p...)
	}

	st.mu.Lock()
	st.pending = append(st.pending, Output{
		Status: StatusReady,
		Bytes:  payload,
		PTS:    pts,
		IsKey:  opts.KeyFrame,
	})
	st.mu.Unlock()
	return nil
}

// FeedChunk unpacks a record produced by FeedFrame (or an equivalent
// record produced by a container demuxer carrying software-encoded
// chunks) and queues the decoded planes for PollOutput.
func (s *Software) FeedChunk(h Handle, data []byte, pts int64, isKey bool) error {
	st, err := s.get(h)
	if err != nil {
		return err
	}
	if st.isEncoder {
		return codecerr.NewInvalidStateError("FeedChunk on an encoder handle")
	}
	if !isKey && !st.seenKey {
		return codecerr.NewDataError("delta chunk received before any key chunk")
	}
	if len(data) < 1 {
		return codecerr.NewDataError("chunk too short to contain a software-backend record")
	}
	st.seenKey = st.seenKey || isKey

	planeBytes := data[1:]
	st.mu.Lock()
	st.pending = append(st.pending, Output{
		Status: StatusReady,
		Planes: [][]byte{planeBytes},
		PTS:    pts,
		IsKey:  isKey,
	})
	st.mu.Unlock()
	return nil
}

func (s *Software) PollOutput(h Handle) (Output, error) {
	st, err := s.get(h)
	if err != nil {
		return Output{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.pending) == 0 {
		return Output{Status: StatusAgain}, nil
	}
	out := st.pending[0]
	st.pending = st.pending[1:]
	return out, nil
}

func (s *Software) Drain(h Handle) error {
	_, err := s.get(h)
	return err
}

// SynthesiseDecoderDescription returns a 16-byte description record:
// width, height, sampleRate and numberOfChannels as big-endian uint32
// values. Real backends return avcC/hvcC/av1C/OpusHead; this is the
// software backend's equivalent private format. The software decoder
// does not read it.
func (s *Software) SynthesiseDecoderDescription(h Handle) ([]byte, error) {
	st, err := s.get(h)
	if err != nil {
		return nil, err
	}
	if !st.isEncoder {
		return nil, codecerr.NewInvalidStateError("SynthesiseDecoderDescription on a decoder handle")
	}
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], st.params.Width)
	binary.BigEndian.PutUint32(buf[4:8], st.params.Height)
	binary.BigEndian.PutUint32(buf[8:12], uint32(st.params.SampleRate))
	binary.BigEndian.PutUint32(buf[12:16], st.params.NumberOfChannels)
	return buf, nil
}

func (s *Software) ProbeSupport(codec string, role config.Role) bool {
	desc := config.ParseCodecString(codec)
	if desc.Family == config.FamilyUnknown {
		return false
	}
	switch role {
	case config.RoleVideoEncoder, config.RoleVideoDecoder:
		return config.IsVideoFamily(desc.Family) && softwareSupportedFamilies[desc.Family]
	case config.RoleAudioEncoder, config.RoleAudioDecoder:
		return config.IsAudioFamily(desc.Family) && softwareSupportedFamilies[desc.Family]
	default:
		return false
	}
}

func (s *Software) Close(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.streams[h]; !ok {
		return codecerr.NewInvalidStateError("close on an unknown backend handle")
	}
	delete(s.streams, h)
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
