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

// VideoEncoderInit mirrors the VideoEncoder constructor's two callbacks.
type VideoEncoderInit struct {
	Output func(*value.EncodedChunk, value.EncodedVideoChunkMetadata)
	Error  func(error)
}

// VideoEncoder implements spec.md §4.A-D's encoder path for video.
type VideoEncoder struct {
	c      *core
	output func(*value.EncodedChunk, value.EncodedVideoChunkMetadata)
	cfg    config.VideoEncoderConfig
}

// NewVideoEncoder constructs an unconfigured VideoEncoder over backends.
func NewVideoEncoder(backends Backends, init VideoEncoderInit) *VideoEncoder {
	e := &VideoEncoder{output: init.Output}
	e.c = newCore(config.RoleVideoEncoder, hwfallback.DirectionVideoEncoder, backends, init.Error)
	return e
}

// State reports the encoder's lifecycle state.
func (e *VideoEncoder) State() state.State { return e.c.State() }

// EncodeQueueSize is the publicly observed queue depth.
func (e *VideoEncoder) EncodeQueueSize() int { return e.c.QueueDepth() }

func (e *VideoEncoder) AddEventListener(typ string, cb func(), capture bool) uint64 {
	return e.c.AddEventListener(typ, cb, capture)
}
func (e *VideoEncoder) RemoveEventListener(typ string, token uint64) { e.c.RemoveEventListener(typ, token) }
func (e *VideoEncoder) SetOnDequeue(cb func())                       { e.c.SetOnDequeue(cb) }

// AttachTelemetry binds t to this instance; nil detaches.
func (e *VideoEncoder) AttachTelemetry(t *telemetry.Telemetry) { e.c.AttachTelemetry(t) }

// Configure validates cfg synchronously (TypeError) then opens a backend
// handle asynchronously on the pipeline worker (NotSupportedError on
// failure, per spec.md §7 family 3).
func (e *VideoEncoder) Configure(cfg config.VideoEncoderConfig) error {
	if err := config.ValidateVideoEncoderConfig(cfg); err != nil {
		return err
	}
	gen, err := e.c.beginConfigure(cfg.Codec)
	if err != nil {
		return err
	}
	e.cfg = cfg

	e.c.pipe.EnqueueConfigure(gen, func() {
		e.c.runConfigureOpen(cfg.HardwareAcceleration, func(b backend.CodecBackend) (backend.Handle, error) {
			bitrate := uint64(0)
			if cfg.Bitrate != nil {
				bitrate = *cfg.Bitrate
			}
			framerate := 0.0
			if cfg.Framerate != nil {
				framerate = *cfg.Framerate
			}
			return b.OpenEncoder(cfg.Codec, config.RoleVideoEncoder, backend.EncoderParams{
				Width: cfg.Width, Height: cfg.Height, Bitrate: bitrate, Framerate: framerate,
				QuantizerMode: cfg.BitrateMode == config.BitrateModeQuantizer,
			})
		})
	})
	return nil
}

// Encode enqueues a frame for encoding. The frame's planes are copied
// out synchronously (so the caller may close or mutate the frame
// immediately after this call returns) and fed to the backend on the
// pipeline worker.
func (e *VideoEncoder) Encode(frame *value.Frame, opts config.EncodeOptions) error {
	gen, err := e.c.encodeOrDecodeGeneration()
	if err != nil {
		return err
	}
	planes, err := frame.Planes()
	if err != nil {
		return err
	}
	pts := frame.Timestamp()
	frameOpts := backend.FrameOptions{KeyFrame: opts.KeyFrame}
	if e.cfg.BitrateMode == config.BitrateModeQuantizer {
		frameOpts.Quantizer = opts.Quantizer
	}
	rotation := frame.Rotation()
	flip := frame.Flip()
	colorSpace := frame.ColorSpace()

	e.c.pipe.EnqueueWork(gen, func() {
		err := e.c.withHandle(func(h backend.Handle, b backend.CodecBackend) error {
			if err := b.FeedFrame(h, planes, pts, frameOpts); err != nil {
				return err
			}
			return e.drainOutputs(h, b, rotation, flip, &colorSpace)
		})
		if err != nil {
			e.c.fail(encodingFailure(err))
		}
	})
	return nil
}

// Flush waits for all prior work to drain (spec.md §4.D).
func (e *VideoEncoder) Flush(ctx context.Context) error { return e.c.Flush(ctx) }

// Reset cancels outstanding work and returns to unconfigured.
func (e *VideoEncoder) Reset() error { return e.c.Reset() }

// Close terminates the instance permanently.
func (e *VideoEncoder) Close() error { return e.c.Close() }

func (e *VideoEncoder) drainOutputs(h backend.Handle, b backend.CodecBackend, rotation int, flip bool, colorSpace *value.ColorSpace) error {
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

		var meta value.EncodedVideoChunkMetadata
		if desc, derr := b.SynthesiseDecoderDescription(h); derr == nil {
			if e.c.noteVideoDescription(desc, rotation, flip, colorSpace) {
				meta.DecoderConfig = &value.VideoDecoderConfig{
					Codec: e.cfg.Codec, CodedWidth: e.cfg.Width, CodedHeight: e.cfg.Height,
					Description: desc, ColorSpace: colorSpace, Rotation: rotation, Flip: flip,
				}
			}
		}

		e.output(chunk, meta)
	}
}
