package imaging

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/five82/webcodecsgo/internal/codecerr"
)

// softwareMimeType is the only MIME type Software recognises. Like
// backend.Software, this is not a real image codec: it is a small
// self-describing record (width, height, frame count, repetition count,
// then each frame's raw RGBA bytes) that Software itself parses back on
// Decode, keeping the decode path exercisable without binding to a real
// image library such as libwebp or libpng.
const softwareMimeType = "image/x-webcodecsgo-software"

type softwareSession struct {
	width, height   uint32
	frameCount      int
	repetitionCount int
	frames          [][]byte
}

// Software is the dependency-free reference ImageBackend, grounded on
// the same stand-in pattern as backend.Software.
type Software struct {
	mu       sync.Mutex
	sessions map[Handle]*softwareSession
	nextID   atomic.Uint64
}

// NewSoftware returns a ready-to-use software image backend.
func NewSoftware() *Software {
	return &Software{sessions: make(map[Handle]*softwareSession)}
}

func (s *Software) Open(data []byte, mimeType string) (Handle, error) {
	if mimeType != softwareMimeType {
		return 0, fmt.Errorf("software image backend only recognises %q, got %q", softwareMimeType, mimeType)
	}
	if len(data) < 13 {
		return 0, fmt.Errorf("record too short to contain a header")
	}

	width := binary.BigEndian.Uint32(data[0:4])
	height := binary.BigEndian.Uint32(data[4:8])
	frameCount := int(data[8])
	repetitionCount := int(binary.BigEndian.Uint32(data[9:13]))

	frameSize := int(width) * int(height) * 4
	body := data[13:]
	if len(body) < frameSize*frameCount {
		return 0, fmt.Errorf("record too short for %d frames of %dx%d", frameCount, width, height)
	}

	frames := make([][]byte, frameCount)
	for i := 0; i < frameCount; i++ {
		frames[i] = body[i*frameSize : (i+1)*frameSize]
	}

	id := Handle(s.nextID.Add(1))
	s.mu.Lock()
	s.sessions[id] = &softwareSession{
		width: width, height: height, frameCount: frameCount,
		repetitionCount: repetitionCount, frames: frames,
	}
	s.mu.Unlock()
	return id, nil
}

func (s *Software) get(h Handle) (*softwareSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[h]
	if !ok {
		return nil, codecerr.NewInvalidStateError("unknown image backend handle")
	}
	return sess, nil
}

func (s *Software) Tracks(h Handle) ([]TrackInfo, error) {
	sess, err := s.get(h)
	if err != nil {
		return nil, err
	}
	return []TrackInfo{{
		Index: 0, FrameCount: sess.frameCount, RepetitionCount: sess.repetitionCount,
		Width: sess.width, Height: sess.height,
	}}, nil
}

// Complete reports true for every open handle: Software is handed the
// whole byte buffer up front by NewImageDecoder, so there is never a
// partially decoded track to wait on. An unknown or closed handle
// reports false.
func (s *Software) Complete(h Handle) bool {
	_, err := s.get(h)
	return err == nil
}

func (s *Software) DecodeFrame(h Handle, trackIndex, frameIndex int) ([][]byte, uint32, uint32, error) {
	sess, err := s.get(h)
	if err != nil {
		return nil, 0, 0, err
	}
	if trackIndex != 0 {
		return nil, 0, 0, fmt.Errorf("track index %d out of range", trackIndex)
	}
	if frameIndex < 0 || frameIndex >= sess.frameCount {
		return nil, 0, 0, fmt.Errorf("frame index %d out of range (have %d frames)", frameIndex, sess.frameCount)
	}
	frame := make([]byte, len(sess.frames[frameIndex]))
	copy(frame, sess.frames[frameIndex])
	return [][]byte{frame}, sess.width, sess.height, nil
}

func (s *Software) Close(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, h)
	return nil
}
