package codec

import (
	"context"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/telemetry"
	"github.com/five82/webcodecsgo/internal/value"
)

// AudioEncoderInit mirrors the AudioEncoder constructor's two callbacks.
type AudioEncoderInit struct {
	Output func(*value.EncodedChunk, value.EncodedAudioChunkMetadata)
	Error  func(error)
}

// AudioEncoder implements spec.md §4.A-D's encoder path for audio.
type AudioEncoder struct {
	c      *core
	output func(*value.EncodedChunk, value.EncodedAudioChunkMetadata)
	cfg    config.AudioEncoderConfig
}

// NewAudioEncoder constructs an unconfigured AudioEncoder over backends.
func NewAudioEncoder(backends Backends, init AudioEncoderInit) *AudioEncoder {
	e := &AudioEncoder{output: init.Output}
	e.c = newCore(config.RoleAudioEncoder, hwfallback.DirectionAudioEncoder, backends, init.Error)
	return e
}

func (e *AudioEncoder) State() state.State  { return e.c.State() }
func (e *AudioEncoder) EncodeQueueSize() int { return e.c.QueueDepth() }
func (e *AudioEncoder) AddEventListener(typ string, cb func(), capture bool) uint64 {
	return e.c.AddEventListener(typ, cb, capture)
}
func (e *AudioEncoder) RemoveEventListener(typ string, token uint64) { e.c.RemoveEventListener(typ, token) }
func (e *AudioEncoder) SetOnDequeue(cb func())                       { e.c.SetOnDequeue(cb) }

// AttachTelemetry binds t to this instance; nil detaches.
func (e *AudioEncoder) AttachTelemetry(t *telemetry.Telemetry) { e.c.AttachTelemetry(t) }

// Configure validates cfg synchronously then opens a backend handle
// asynchronously on the pipeline worker.
func (e *AudioEncoder) Configure(cfg config.AudioEncoderConfig) error {
	if err := config.ValidateAudioEncoderConfig(cfg); err != nil {
		return err
	}
	gen, err := e.c.beginConfigure(cfg.Codec)
	if err != nil {
		return err
	}
	e.cfg = cfg

	e.c.pipe.EnqueueConfigure(gen, func() {
		e.c.runConfigureOpen(config.HardwarePreference, func(b backend.CodecBackend) (backend.Handle, error) {
			bitrate := uint64(0)
			if cfg.Bitrate != nil {
				bitrate = *cfg.Bitrate
			}
			return b.OpenEncoder(cfg.Codec, config.RoleAudioEncoder, backend.EncoderParams{
				SampleRate: cfg.SampleRate, NumberOfChannels: cfg.NumberOfChannels, Bitrate: bitrate,
			})
		})
	})
	return nil
}

// Encode enqueues audio data for encoding.
func (e *AudioEncoder) Encode(data *value.AudioData) error {
	gen, err := e.c.encodeOrDecodeGeneration()
	if err != nil {
		return err
	}
	planes, err := data.Planes()
	if err != nil {
		return err
	}
	pts := data.Timestamp()

	e.c.pipe.EnqueueWork(gen, func() {
		err := e.c.withHandle(func(h backend.Handle, b backend.CodecBackend) error {
			if err := b.FeedFrame(h, planes, pts, backend.FrameOptions{KeyFrame: true}); err != nil {
				return err
			}
			return e.drainOutputs(h, b)
		})
		if err != nil {
			e.c.fail(encodingFailure(err))
		}
	})
	return nil
}

func (e *AudioEncoder) Flush(ctx context.Context) error { return e.c.Flush(ctx) }
func (e *AudioEncoder) Reset() error                    { return e.c.Reset() }
func (e *AudioEncoder) Close() error                    { return e.c.Close() }

func (e *AudioEncoder) drainOutputs(h backend.Handle, b backend.CodecBackend) error {
	for {
		out, err := b.PollOutput(h)
		if err != nil {
			return err
		}
		if out.Status != backend.StatusReady {
			return nil
		}

		chunkType := value.ChunkTypeDelta
		if out.IsKey {
			chunkType = value.ChunkTypeKey
		}
		chunk, err := value.NewEncodedChunk(value.ChunkInit{
			Type: chunkType, Timestamp: out.PTS, Duration: out.Duration, Data: out.Bytes,
		})
		if err != nil {
			return err
		}

		var meta value.EncodedAudioChunkMetadata
		if desc, derr := b.SynthesiseDecoderDescription(h); derr == nil {
			if e.c.noteDescription(desc) {
				meta.DecoderConfig = &value.AudioDecoderConfig{
					Codec: e.cfg.Codec, SampleRate: e.cfg.SampleRate, NumberOfChannels: e.cfg.NumberOfChannels, Description: desc,
				}
			}
		}

		e.output(chunk, meta)
	}
}
