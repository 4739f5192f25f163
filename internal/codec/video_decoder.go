package codec

import (
	"bytes"
	"context"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/telemetry"
	"github.com/five82/webcodecsgo/internal/value"
)

// VideoDecoderInit mirrors the VideoDecoder constructor's two callbacks.
type VideoDecoderInit struct {
	Output func(*value.Frame)
	Error  func(error)
}

// VideoDecoder implements spec.md §4.A-D's decoder path for video.
type VideoDecoder struct {
	c      *core
	output func(*value.Frame)
	cfg    config.VideoDecoderConfig

	// keyAwaited enforces spec.md §7 family 2: the first chunk decoded
	// after each configure/reset must be a key chunk.
	keyAwaited bool
}

// NewVideoDecoder constructs an unconfigured VideoDecoder over backends.
func NewVideoDecoder(backends Backends, init VideoDecoderInit) *VideoDecoder {
	d := &VideoDecoder{output: init.Output, keyAwaited: true}
	d.c = newCore(config.RoleVideoDecoder, hwfallback.DirectionVideoDecoder, backends, init.Error)
	return d
}

func (d *VideoDecoder) State() state.State      { return d.c.State() }
func (d *VideoDecoder) DecodeQueueSize() int     { return d.c.QueueDepth() }
func (d *VideoDecoder) AddEventListener(typ string, cb func(), capture bool) uint64 {
	return d.c.AddEventListener(typ, cb, capture)
}
func (d *VideoDecoder) RemoveEventListener(typ string, token uint64) { d.c.RemoveEventListener(typ, token) }
func (d *VideoDecoder) SetOnDequeue(cb func())                       { d.c.SetOnDequeue(cb) }

// AttachTelemetry binds t to this instance; nil detaches.
func (d *VideoDecoder) AttachTelemetry(t *telemetry.Telemetry) { d.c.AttachTelemetry(t) }

// Configure validates cfg synchronously then opens a backend handle
// asynchronously on the pipeline worker.
func (d *VideoDecoder) Configure(cfg config.VideoDecoderConfig) error {
	if err := config.ValidateVideoDecoderConfig(cfg); err != nil {
		return err
	}
	gen, err := d.c.beginConfigure(cfg.Codec)
	if err != nil {
		return err
	}
	d.cfg = cfg
	d.keyAwaited = true

	d.c.pipe.EnqueueConfigure(gen, func() {
		d.c.runConfigureOpen(cfg.HardwareAcceleration, func(b backend.CodecBackend) (backend.Handle, error) {
			return b.OpenDecoder(cfg.Codec, config.RoleVideoDecoder, backend.DecoderParams{
				CodedWidth: cfg.CodedWidth, CodedHeight: cfg.CodedHeight, Description: cfg.Description,
			})
		})
	})
	return nil
}

// Decode enqueues an encoded chunk for decoding. The first chunk after a
// configure or reset must carry ChunkTypeKey (spec.md §7 family 2); any
// other ordering fails synchronously with a DataError and the instance
// remains usable.
func (d *VideoDecoder) Decode(chunk *value.EncodedChunk) error {
	gen, err := d.c.encodeOrDecodeGeneration()
	if err != nil {
		return err
	}
	if d.keyAwaited && chunk.Type() != value.ChunkTypeKey {
		return codecerr.NewDataError("first chunk decoded after configure/reset must be a key chunk")
	}
	d.keyAwaited = false

	data := chunk.Bytes()
	pts := chunk.Timestamp()
	duration := chunk.Duration()
	isKey := chunk.Type() == value.ChunkTypeKey

	d.c.pipe.EnqueueWork(gen, func() {
		err := d.c.withHandle(func(h backend.Handle, b backend.CodecBackend) error {
			if err := b.FeedChunk(h, data, pts, isKey); err != nil {
				return err
			}
			return d.drainOutputs(h, b, duration)
		})
		if err != nil {
			d.c.fail(decodingFailure(err))
		}
	})
	return nil
}

func (d *VideoDecoder) Flush(ctx context.Context) error { return d.c.Flush(ctx) }
func (d *VideoDecoder) Reset() error {
	d.keyAwaited = true
	return d.c.Reset()
}
func (d *VideoDecoder) Close() error { return d.c.Close() }

func (d *VideoDecoder) drainOutputs(h backend.Handle, b backend.CodecBackend, duration *uint64) error {
	for {
		out, err := b.PollOutput(h)
		if err != nil {
			return err
		}
		if out.Status != backend.StatusReady {
			return nil
		}

		data := out.Bytes
		if data == nil {
			data = concatPlanes(out.Planes)
		}

		frame, err := value.NewFrameFromBuffer(data, value.FrameInit{
			Format:       value.FormatI420,
			CodedWidth:   d.cfg.CodedWidth,
			CodedHeight:  d.cfg.CodedHeight,
			Timestamp:    out.PTS,
			HasTimestamp: true,
			Duration:     duration,
			ColorSpace:   d.cfg.ColorSpace,
		})
		if err != nil {
			return err
		}
		d.output(frame)
	}
}

func concatPlanes(planes [][]byte) []byte {
	if len(planes) == 1 {
		return planes[0]
	}
	var buf bytes.Buffer
	for _, p := range planes {
		buf.Write(p)
	}
	return buf.Bytes()
}

func decodingFailure(err error) error {
	return codecerr.NewDecodingError("backend failure", err)
}
