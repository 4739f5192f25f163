package mp4

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/five82/webcodecsgo/internal/codecerr"
)

// TrackInfo is the demux-side counterpart of TrackConfig: what a reader
// can learn about a track before pulling any packets.
type TrackInfo struct {
	Index            int
	IsVideo          bool
	Codec            string
	Width, Height    uint32
	SampleRate       uint32
	NumberOfChannels uint16
	Description      []byte
	DurationUs       uint64
}

// Packet is one demuxed sample.
type Packet struct {
	TrackIndex int
	Data       []byte
	PTS        uint64
	Duration   uint32
	IsKey      bool
}

type demuxTrack struct {
	info    TrackInfo
	samples []sampleLocation
	cursor  int
}

type sampleLocation struct {
	offset   uint64
	size     uint32
	pts      uint64
	duration uint32
	isKey    bool
}

// Demuxer reads a non-fragmented MP4 file (the output of Muxer with
// Fragmented: false, or any standard MP4) sample-by-sample. unloaded →
// ready → demuxing → ended, per spec.md §4.G; Demuxer starts in
// "unloaded" and Load/LoadBuffer transitions to "ready".
type Demuxer struct {
	mu       sync.Mutex
	loaded   bool
	tracks   []*demuxTrack
	data     []byte
	duration uint64
}

// NewDemuxer returns an unloaded demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{}
}

// Load parses the MP4 file at path. It rejects a second call on an
// already-loaded demuxer with an "already loaded" diagnostic, per
// spec.md §4.G.
func (d *Demuxer) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return codecerr.NewDataError(err.Error())
	}
	return d.LoadBuffer(b)
}

// LoadBuffer parses MP4 bytes already resident in memory.
func (d *Demuxer) LoadBuffer(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return codecerr.NewInvalidStateError("demuxer already loaded")
	}

	f, err := mp4.DecodeFile(bytes.NewReader(b))
	if err != nil {
		return codecerr.NewDataError("failed to decode mp4: " + err.Error())
	}
	if f.Moov == nil {
		return codecerr.NewDataError("mp4 file has no moov box")
	}

	for i, trak := range f.Moov.Traks {
		info, samples, err := indexTrack(trak, b)
		if err != nil {
			return err
		}
		info.Index = i
		d.tracks = append(d.tracks, &demuxTrack{info: info, samples: samples})
		if dur := info.DurationUs; dur > d.duration {
			d.duration = dur
		}
	}

	d.data = b
	d.loaded = true
	return nil
}

// indexTrack builds the flat sample list for one track by combining the
// standard sample-table boxes (stsz for sizes, stco/co64 for chunk
// offsets, stsc for samples-per-chunk, stts for durations, stss for sync
// samples), mirroring ISO/IEC 14496-12 §8.7 rather than any mp4ff
// convenience wrapper, so the indexing logic is legible against the spec
// the boxes themselves implement.
func indexTrack(trak *mp4.TrakBox, fileBytes []byte) (TrackInfo, []sampleLocation, error) {
	stbl := trak.Mdia.Minf.Stbl
	if stbl == nil || stbl.Stsz == nil || stbl.Stsc == nil {
		return TrackInfo{}, nil, codecerr.NewDataError("mp4 track missing a sample table")
	}

	timescale := uint64(trak.Mdia.Mdhd.Timescale)
	sampleCount := int(stbl.Stsz.SampleNumber)

	chunkOffsets := chunkOffsetList(stbl)
	samplesPerChunk := expandStsc(stbl.Stsc, len(chunkOffsets))
	durations := expandStts(stbl.Stts, sampleCount)
	syncSet := syncSampleSet(stbl.Stss)

	samples := make([]sampleLocation, 0, sampleCount)
	var pts uint64
	sampleIdx := 0
	for chunkIdx, chunkOffset := range chunkOffsets {
		n := samplesPerChunk[chunkIdx]
		offset := chunkOffset
		for j := 0; j < n && sampleIdx < sampleCount; j++ {
			size := stbl.Stsz.GetSampleSize(sampleIdx + 1)
			dur := uint32(1)
			if sampleIdx < len(durations) {
				dur = durations[sampleIdx]
			}
			isKey := len(syncSet) == 0 || syncSet[sampleIdx+1]
			samples = append(samples, sampleLocation{
				offset:   offset,
				size:     uint32(size),
				pts:      pts * 1_000_000 / timescale,
				duration: uint32(uint64(dur) * 1_000_000 / timescale),
				isKey:    isKey,
			})
			offset += uint64(size)
			pts += uint64(dur)
			sampleIdx++
		}
	}

	info := TrackInfo{
		IsVideo:    trak.Mdia.Hdlr.HandlerType == "vide",
		DurationUs: pts * 1_000_000 / timescale,
	}
	if stsd := stbl.Stsd; stsd != nil && len(stsd.Children) > 0 {
		if v, ok := stsd.Children[0].(*mp4.VisualSampleEntryBox); ok {
			info.Width = uint32(v.Width)
			info.Height = uint32(v.Height)
			info.Codec = v.Type()
		}
		if a, ok := stsd.Children[0].(*mp4.AudioSampleEntryBox); ok {
			info.SampleRate = uint32(a.SampleRate)
			info.NumberOfChannels = uint16(a.ChannelCount)
			info.Codec = a.Type()
		}
	}

	return info, samples, nil
}

func chunkOffsetList(stbl *mp4.StblBox) []uint64 {
	if stbl.Stco != nil {
		out := make([]uint64, len(stbl.Stco.ChunkOffset))
		for i, o := range stbl.Stco.ChunkOffset {
			out[i] = uint64(o)
		}
		return out
	}
	if stbl.Co64 != nil {
		return append([]uint64(nil), stbl.Co64.ChunkOffset...)
	}
	return nil
}

func expandStsc(stsc *mp4.StscBox, chunkCount int) []int {
	out := make([]int, chunkCount)
	for i := 0; i < len(stsc.FirstChunk); i++ {
		start := int(stsc.FirstChunk[i]) - 1
		end := chunkCount
		if i+1 < len(stsc.FirstChunk) {
			end = int(stsc.FirstChunk[i+1]) - 1
		}
		for c := start; c < end && c < chunkCount; c++ {
			out[c] = int(stsc.SamplesPerChunk[i])
		}
	}
	return out
}

func expandStts(stts *mp4.SttsBox, sampleCount int) []uint32 {
	out := make([]uint32, 0, sampleCount)
	if stts == nil {
		return out
	}
	for i := 0; i < len(stts.SampleCount); i++ {
		for j := uint32(0); j < stts.SampleCount[i]; j++ {
			out = append(out, stts.SampleTimeDelta[i])
		}
	}
	return out
}

func syncSampleSet(stss *mp4.StssBox) map[int]bool {
	if stss == nil {
		return nil
	}
	set := make(map[int]bool, len(stss.SampleNumber))
	for _, n := range stss.SampleNumber {
		set[int(n)] = true
	}
	return set
}

// Tracks returns the demuxed track descriptors.
func (d *Demuxer) Tracks() []TrackInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TrackInfo, len(d.tracks))
	for i, t := range d.tracks {
		out[i] = t.info
	}
	return out
}

// Duration returns the file duration in microseconds.
func (d *Demuxer) Duration() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

// ReadPacket returns the next sample from trackIndex in presentation
// order, or io.EOF once every sample has been emitted.
func (d *Demuxer) ReadPacket(trackIndex int) (Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return Packet{}, codecerr.NewInvalidStateError("demuxer not loaded")
	}
	if trackIndex < 0 || trackIndex >= len(d.tracks) {
		return Packet{}, codecerr.NewTypeError("track index out of range")
	}
	t := d.tracks[trackIndex]
	if t.cursor >= len(t.samples) {
		return Packet{}, io.EOF
	}
	loc := t.samples[t.cursor]
	t.cursor++

	if loc.offset+uint64(loc.size) > uint64(len(d.data)) {
		return Packet{}, codecerr.NewDataError("sample offset/size exceeds file bounds")
	}
	data := make([]byte, loc.size)
	copy(data, d.data[loc.offset:loc.offset+uint64(loc.size)])

	return Packet{
		TrackIndex: trackIndex,
		Data:       data,
		PTS:        loc.pts,
		Duration:   loc.duration,
		IsKey:      loc.isKey,
	}, nil
}

// Seek moves trackIndex's read head to the first sample at or after
// ptsUs, snapping backward to the nearest preceding sync sample per
// spec.md §4.G ("chunks emitted after seek may include data earlier
// than the requested timestamp when the nearest keyframe precedes it").
func (d *Demuxer) Seek(trackIndex int, ptsUs uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if trackIndex < 0 || trackIndex >= len(d.tracks) {
		return codecerr.NewTypeError("track index out of range")
	}
	t := d.tracks[trackIndex]

	target := 0
	for i, s := range t.samples {
		if s.pts >= ptsUs {
			target = i
			break
		}
		target = i + 1
	}
	for target > 0 && !t.samples[target].isKey {
		target--
	}
	t.cursor = target
	return nil
}
