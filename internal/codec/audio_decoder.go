package codec

import (
	"context"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/telemetry"
	"github.com/five82/webcodecsgo/internal/value"
)

// AudioDecoderInit mirrors the AudioDecoder constructor's two callbacks.
type AudioDecoderInit struct {
	Output func(*value.AudioData)
	Error  func(error)
}

// AudioDecoder implements spec.md §4.A-D's decoder path for audio.
type AudioDecoder struct {
	c      *core
	output func(*value.AudioData)
	cfg    config.AudioDecoderConfig

	keyAwaited bool
}

// NewAudioDecoder constructs an unconfigured AudioDecoder over backends.
func NewAudioDecoder(backends Backends, init AudioDecoderInit) *AudioDecoder {
	d := &AudioDecoder{output: init.Output, keyAwaited: true}
	d.c = newCore(config.RoleAudioDecoder, hwfallback.DirectionAudioDecoder, backends, init.Error)
	return d
}

func (d *AudioDecoder) State() state.State  { return d.c.State() }
func (d *AudioDecoder) DecodeQueueSize() int { return d.c.QueueDepth() }
func (d *AudioDecoder) AddEventListener(typ string, cb func(), capture bool) uint64 {
	return d.c.AddEventListener(typ, cb, capture)
}
func (d *AudioDecoder) RemoveEventListener(typ string, token uint64) { d.c.RemoveEventListener(typ, token) }
func (d *AudioDecoder) SetOnDequeue(cb func())                       { d.c.SetOnDequeue(cb) }

// AttachTelemetry binds t to this instance; nil detaches.
func (d *AudioDecoder) AttachTelemetry(t *telemetry.Telemetry) { d.c.AttachTelemetry(t) }

// Configure validates cfg synchronously then opens a backend handle
// asynchronously on the pipeline worker.
func (d *AudioDecoder) Configure(cfg config.AudioDecoderConfig) error {
	if err := config.ValidateAudioDecoderConfig(cfg); err != nil {
		return err
	}
	gen, err := d.c.beginConfigure(cfg.Codec)
	if err != nil {
		return err
	}
	d.cfg = cfg
	d.keyAwaited = true

	d.c.pipe.EnqueueConfigure(gen, func() {
		d.c.runConfigureOpen(config.HardwarePreference, func(b backend.CodecBackend) (backend.Handle, error) {
			return b.OpenDecoder(cfg.Codec, config.RoleAudioDecoder, backend.DecoderParams{
				SampleRate: cfg.SampleRate, NumberOfChannels: cfg.NumberOfChannels, Description: cfg.Description,
			})
		})
	})
	return nil
}

// Decode enqueues an encoded chunk for decoding, enforcing the
// key-chunk-first invariant per configure/reset cycle.
func (d *AudioDecoder) Decode(chunk *value.EncodedChunk) error {
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
	isKey := chunk.Type() == value.ChunkTypeKey

	d.c.pipe.EnqueueWork(gen, func() {
		err := d.c.withHandle(func(h backend.Handle, b backend.CodecBackend) error {
			if err := b.FeedChunk(h, data, pts, isKey); err != nil {
				return err
			}
			return d.drainOutputs(h, b)
		})
		if err != nil {
			d.c.fail(decodingFailure(err))
		}
	})
	return nil
}

func (d *AudioDecoder) Flush(ctx context.Context) error { return d.c.Flush(ctx) }
func (d *AudioDecoder) Reset() error {
	d.keyAwaited = true
	return d.c.Reset()
}
func (d *AudioDecoder) Close() error { return d.c.Close() }

func (d *AudioDecoder) drainOutputs(h backend.Handle, b backend.CodecBackend) error {
	const bytesPerSample = 4 // f32

	for {
		out, err := b.PollOutput(h)
		if err != nil {
			return err
		}
		if out.Status != backend.StatusReady {
			return nil
		}

		planes := out.Planes
		if planes == nil {
			planes = [][]byte{out.Bytes}
		}
		if len(planes) == 0 || len(planes[0])%bytesPerSample != 0 {
			return codecerr.NewDecodingError("decoded audio plane is not sample-aligned", nil)
		}
		frames := uint32(len(planes[0]) / bytesPerSample)

		packed := concatPlanes(planes)
		data, err := value.NewAudioData(value.AudioDataInit{
			Format:           value.SampleFormatF32Planar,
			SampleRate:       d.cfg.SampleRate,
			NumberOfFrames:   frames,
			NumberOfChannels: d.cfg.NumberOfChannels,
			Timestamp:        out.PTS,
			Data:             packed,
		})
		if err != nil {
			return err
		}
		d.output(data)
	}
}
