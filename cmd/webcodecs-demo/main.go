// Package main provides a small CLI exercising the webcodecsgo library
// end to end: encode raw I420 video into an MP4/WebM container, probe a
// container's tracks, or decode a container's video track back to raw
// I420. Adapted from the teacher's cmd/reel entry point, trading its
// batch AV1 pipeline for direct VideoEncoder/VideoDecoder/container
// calls against whichever codec string the caller names.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/codec"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/container"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/preset"
	"github.com/five82/webcodecsgo/internal/telemetry"
	"github.com/five82/webcodecsgo/internal/util"
	"github.com/five82/webcodecsgo/internal/value"
)

const (
	appName    = "webcodecs-demo"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "probe":
		err = runProbe(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - WebCodecs-style encode/decode demo

Usage:
  %s <command> [options]

Commands:
  encode    Encode a raw I420 file into an MP4/WebM container
  decode    Decode a container's video track back to raw I420
  probe     Print the tracks found in a container file
  version   Print version information
  help      Show this help message

Run '%s <command> --help' for command options.
`, appName, appName, appName)
}

// backendFor builds the Backends pair a codec.NewVideo* call needs, per
// the --backend flag: "software" (the dependency-free reference path),
// "astiav" (FFmpeg via go-astiav), or "gstreamer" (go-gst).
func backendFor(name string) (codec.Backends, error) {
	sw := backend.NewSoftware()
	b := codec.Backends{Software: sw, Fallback: hwfallback.NewRegistry()}
	switch name {
	case "", "software":
	case "astiav":
		b.Hardware = backend.NewAstiav(sw)
	case "gstreamer":
		b.Hardware = backend.NewGStreamer(sw)
	default:
		return codec.Backends{}, fmt.Errorf("unknown backend %q (want software, astiav, or gstreamer)", name)
	}
	return b, nil
}

func containerFormatFor(name, outputPath string) (container.Format, error) {
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(outputPath), ".")
	}
	switch strings.ToLower(name) {
	case "mp4":
		return container.FormatMP4, nil
	case "webm":
		return container.FormatWebM, nil
	case "mkv", "matroska":
		return container.FormatMatroska, nil
	default:
		return 0, fmt.Errorf("cannot infer container format from %q; pass --container mp4|webm|mkv", name)
	}
}

type encodeArgs struct {
	input, output    string
	codec            string
	width, height    int
	fps              float64
	bitrate          uint64
	containerName    string
	backendName      string
	keyFrameEvery    int
	logDir           string
	verbose, noLog   bool
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Encode a raw I420 file into a container.

Usage:
  %s encode [options]

Required:
  -i, --input <PATH>     Raw I420 input file (frames packed back to back)
  -o, --output <PATH>    Output container file
  --width <N>            Frame width in pixels
  --height <N>           Frame height in pixels

Options:
  --codec <STRING>       Codec string, e.g. vp8, vp09.00.10.08, avc1.42001E. Default: vp8
  --fps <N>              Frames per second, used to derive chunk duration. Default: 30
  --bitrate <N>          Target bitrate in bits/sec. Default: resolution-tiered preset
  --container <NAME>     mp4, webm, or mkv. Default: inferred from --output's extension
  --backend <NAME>       software, astiav, or gstreamer. Default: software
  --keyframe-every <N>   Force a key frame every N frames. Default: every frame
  -l, --log-dir <PATH>   Log directory. Default: %s
  -v, --verbose          Enable debug-level log output
  --no-log               Disable log file creation
`, appName, telemetry.DefaultLogDir())
	}

	var ea encodeArgs
	fs.StringVar(&ea.input, "i", "", "")
	fs.StringVar(&ea.input, "input", "", "")
	fs.StringVar(&ea.output, "o", "", "")
	fs.StringVar(&ea.output, "output", "", "")
	fs.StringVar(&ea.codec, "codec", "vp8", "")
	fs.IntVar(&ea.width, "width", 0, "")
	fs.IntVar(&ea.height, "height", 0, "")
	fs.Float64Var(&ea.fps, "fps", 30, "")
	fs.Uint64Var(&ea.bitrate, "bitrate", 0, "")
	fs.StringVar(&ea.containerName, "container", "", "")
	fs.StringVar(&ea.backendName, "backend", "software", "")
	fs.IntVar(&ea.keyFrameEvery, "keyframe-every", 1, "")
	fs.StringVar(&ea.logDir, "l", "", "")
	fs.StringVar(&ea.logDir, "log-dir", "", "")
	fs.BoolVar(&ea.verbose, "v", false, "")
	fs.BoolVar(&ea.verbose, "verbose", false, "")
	fs.BoolVar(&ea.noLog, "no-log", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if ea.input == "" || ea.output == "" || ea.width <= 0 || ea.height <= 0 {
		fs.Usage()
		return fmt.Errorf("--input, --output, --width, and --height are all required")
	}

	return executeEncode(ea)
}

func executeEncode(ea encodeArgs) error {
	logDir := ea.logDir
	if logDir == "" {
		logDir = telemetry.DefaultLogDir()
	}
	tel, err := telemetry.Setup(logDir, ea.verbose, ea.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	if tel != nil {
		defer func() { _ = tel.Close() }()
	}
	tel.Info("encode starting", map[string]any{"input": ea.input, "output": ea.output, "codec": ea.codec})

	outDir := filepath.Dir(ea.output)
	if outDir == "" {
		outDir = "."
	}
	if err := util.EnsureDirectoryWritable(outDir); err != nil {
		return err
	}
	util.CheckDiskSpace(outDir, func(format string, args ...any) {
		tel.Info(fmt.Sprintf(format, args...), nil)
	})

	format, err := containerFormatFor(ea.containerName, ea.output)
	if err != nil {
		return err
	}

	width, height := uint32(ea.width), uint32(ea.height)
	frameSize, err := value.AllocationSize(value.FormatI420, width, height)
	if err != nil {
		return err
	}

	in, err := os.Open(ea.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}
	frameCount := int(stat.Size() / int64(frameSize))
	if frameCount == 0 {
		return fmt.Errorf("input file is smaller than one %dx%d I420 frame", width, height)
	}

	backends, err := backendFor(ea.backendName)
	if err != nil {
		return err
	}

	mux, err := container.NewMuxer(format, true, false)
	if err != nil {
		return fmt.Errorf("failed to create muxer: %w", err)
	}

	var mu sync.Mutex
	var outputErr error
	var describedOnce bool

	enc := codec.NewVideoEncoder(backends, codec.VideoEncoderInit{
		Output: func(chunk *value.EncodedChunk, meta value.EncodedVideoChunkMetadata) {
			mu.Lock()
			defer mu.Unlock()
			if !describedOnce {
				description := []byte(nil)
				if meta.DecoderConfig != nil {
					description = meta.DecoderConfig.Description
				}
				if err := mux.AddVideoTrack(container.TrackConfig{
					Codec: ea.codec, Width: width, Height: height, Description: description,
				}); err != nil {
					outputErr = err
					return
				}
				describedOnce = true
			}
			dur := uint32(0)
			if d := chunk.Duration(); d != nil {
				dur = uint32(*d)
			}
			data := make([]byte, chunk.ByteLength())
			if _, err := chunk.CopyTo(data); err != nil {
				outputErr = err
				return
			}
			if err := mux.WriteChunk(0, container.ChunkInput{
				Data: data, PTS: uint64(chunk.Timestamp()), Duration: dur, IsKey: chunk.Type() == value.ChunkTypeKey,
			}); err != nil {
				outputErr = err
			}
		},
		Error: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			if outputErr == nil {
				outputErr = err
			}
		},
	})
	defer enc.Close()

	bitrate := ea.bitrate
	if bitrate == 0 {
		bitrate = preset.BitrateForWidth(width)
	}
	fps := ea.fps
	if err := enc.Configure(config.VideoEncoderConfig{
		Codec: ea.codec, Width: width, Height: height,
		Bitrate: &bitrate, Framerate: &fps,
	}); err != nil {
		return fmt.Errorf("configure failed: %w", err)
	}

	bar := progressbar.NewOptions(frameCount,
		progressbar.OptionSetDescription("encoding"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	frameDurationUs := uint64(0)
	if fps > 0 {
		frameDurationUs = uint64(1_000_000 / fps)
	}

	buf := make([]byte, frameSize)
	for i := 0; i < frameCount; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return fmt.Errorf("failed reading frame %d: %w", i, err)
		}
		frameBuf := make([]byte, frameSize)
		copy(frameBuf, buf)

		frame, err := value.NewFrameFromBuffer(frameBuf, value.FrameInit{
			Format: value.FormatI420, CodedWidth: width, CodedHeight: height,
			Timestamp: int64(uint64(i) * frameDurationUs), HasTimestamp: true,
		})
		if err != nil {
			return err
		}

		keyFrame := ea.keyFrameEvery > 0 && i%ea.keyFrameEvery == 0
		err = enc.Encode(frame, config.EncodeOptions{KeyFrame: keyFrame})
		frame.Close()
		if err != nil {
			return fmt.Errorf("encode failed at frame %d: %w", i, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	watchSignals(cancel)
	if err := enc.Flush(ctx); err != nil {
		cancel()
		return fmt.Errorf("flush failed: %w", err)
	}
	cancel()

	mu.Lock()
	ferr := outputErr
	mu.Unlock()
	if ferr != nil {
		return fmt.Errorf("encoder reported an error: %w", ferr)
	}

	if err := mux.Flush(); err != nil {
		return fmt.Errorf("mux flush failed: %w", err)
	}
	out, err := mux.Finalize()
	if err != nil {
		return fmt.Errorf("mux finalize failed: %w", err)
	}
	if err := os.WriteFile(ea.output, out, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Printf("wrote %s (%d bytes, %d frames)\n", ea.output, len(out), frameCount)
	tel.Info("encode finished", map[string]any{"bytes": len(out), "frames": frameCount})
	return nil
}

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	var input string
	fs.StringVar(&input, "i", "", "")
	fs.StringVar(&input, "input", "", "")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Print the tracks in a container.\n\nUsage:\n  %s probe -i <PATH>\n", appName)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		fs.Usage()
		return fmt.Errorf("-i/--input is required")
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	demux, err := container.NewDemuxerFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to open container: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("TRACKS")
	for _, t := range demux.Tracks() {
		kind := "audio"
		if t.IsVideo {
			kind = "video"
		}
		if t.IsVideo {
			fmt.Printf("  [%d] %s codec=%s %dx%d duration=%dus\n", t.Index, kind, t.Codec, t.Width, t.Height, t.DurationUs)
		} else {
			fmt.Printf("  [%d] %s codec=%s sampleRate=%.0f channels=%d duration=%dus\n",
				t.Index, kind, t.Codec, t.SampleRate, t.NumberOfChannels, t.DurationUs)
		}
	}
	fmt.Printf("duration: %dus\n", demux.Duration())
	return nil
}

type decodeArgs struct {
	input, output string
	track         int
	backendName   string
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var da decodeArgs
	fs.StringVar(&da.input, "i", "", "")
	fs.StringVar(&da.input, "input", "", "")
	fs.StringVar(&da.output, "o", "", "")
	fs.StringVar(&da.output, "output", "", "")
	fs.IntVar(&da.track, "track", -1, "Video track index; default is the first video track found")
	fs.StringVar(&da.backendName, "backend", "software", "")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Decode a container's video track to raw I420.

Usage:
  %s decode -i <PATH> -o <PATH> [--track N] [--backend software|astiav|gstreamer]
`, appName)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if da.input == "" || da.output == "" {
		fs.Usage()
		return fmt.Errorf("-i/--input and -o/--output are required")
	}
	return executeDecode(da)
}

func executeDecode(da decodeArgs) error {
	data, err := os.ReadFile(da.input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", da.input, err)
	}
	demux, err := container.NewDemuxerFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to open container: %w", err)
	}

	tracks := demux.Tracks()
	trackIndex := da.track
	if trackIndex < 0 {
		for _, t := range tracks {
			if t.IsVideo {
				trackIndex = t.Index
				break
			}
		}
	}
	if trackIndex < 0 {
		return fmt.Errorf("no video track found in %s", da.input)
	}

	var track container.TrackInfo
	found := false
	for _, t := range tracks {
		if t.Index == trackIndex {
			track, found = t, true
			break
		}
	}
	if !found {
		return fmt.Errorf("track %d not found in %s", trackIndex, da.input)
	}

	backends, err := backendFor(da.backendName)
	if err != nil {
		return err
	}

	out, err := os.Create(da.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", da.output, err)
	}
	defer out.Close()

	var writeErr error
	frameCount := 0
	dec := codec.NewVideoDecoder(backends, codec.VideoDecoderInit{
		Output: func(frame *value.Frame) {
			defer frame.Close()
			planes, err := frame.Planes()
			if err != nil {
				if writeErr == nil {
					writeErr = err
				}
				return
			}
			for _, p := range planes {
				if _, err := out.Write(p); err != nil && writeErr == nil {
					writeErr = err
				}
			}
			frameCount++
		},
		Error: func(err error) {
			if writeErr == nil {
				writeErr = err
			}
		},
	})
	defer dec.Close()

	if err := dec.Configure(config.VideoDecoderConfig{
		Codec: track.Codec, CodedWidth: track.Width, CodedHeight: track.Height, Description: track.Description,
	}); err != nil {
		return fmt.Errorf("configure failed: %w", err)
	}

	for {
		pkt, err := demux.ReadPacket(trackIndex)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("demux failed: %w", err)
		}
		chunkType := value.ChunkTypeDelta
		if pkt.IsKey {
			chunkType = value.ChunkTypeKey
		}
		var duration *uint64
		if pkt.Duration > 0 {
			d := uint64(pkt.Duration)
			duration = &d
		}
		chunk, err := value.NewEncodedChunk(value.ChunkInit{
			Type: chunkType, Timestamp: int64(pkt.PTS), Duration: duration, Data: pkt.Data,
		})
		if err != nil {
			return err
		}
		if err := dec.Decode(chunk); err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	watchSignals(cancel)
	if err := dec.Flush(ctx); err != nil {
		cancel()
		return fmt.Errorf("flush failed: %w", err)
	}
	cancel()
	if writeErr != nil {
		return fmt.Errorf("decoder reported an error: %w", writeErr)
	}

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Printf("wrote %s (%d frames)\n", da.output, frameCount)
	return nil
}

// watchSignals cancels ctx on SIGINT/SIGTERM, mirroring the teacher's
// signal handling for long-running encodes.
func watchSignals(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
}
