package avcmp4

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"
)

// Demux reads the AVC video track of a fragmented or progressive MP4.
// Sample data is returned in Annex B form without parameter sets; use
// Track.ParameterSets for those.
func Demux(r io.ReadSeeker) (*Track, []Sample, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode mp4: %w", err)
	}
	if f.IsFragmented() {
		return readFragmented(f)
	}
	return readProgressive(f, r)
}

// Probe reads only the track description of an MP4.
func Probe(r io.ReadSeeker) (*Track, int, error) {
	track, samples, err := Demux(r)
	if err != nil {
		return nil, 0, err
	}
	return track, len(samples), nil
}

// videoTrack finds the first video track with an AVC sample entry.
func videoTrack(moov *mp4.MoovBox) (*mp4.TrakBox, *mp4.AvcCBox) {
	if moov == nil {
		return nil, nil
	}
	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
			continue
		}
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			if vse, ok := child.(*mp4.VisualSampleEntryBox); ok && vse.AvcC != nil {
				return trak, vse.AvcC
			}
		}
	}
	return nil, nil
}

func newTrack(trak *mp4.TrakBox, avcC *mp4.AvcCBox) (*Track, error) {
	t := &Track{
		ID:        trak.Tkhd.TrackID,
		Timescale: 1000,
		SPS:       avcC.SPSnalus,
		PPS:       avcC.PPSnalus,
	}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		t.Timescale = trak.Mdia.Mdhd.Timescale
	}
	if len(t.SPS) == 0 {
		return nil, ErrNoParameterSets
	}
	sps, err := avc.ParseSPSNALUnit(t.SPS[0], false)
	if err != nil {
		return nil, fmt.Errorf("parse SPS: %w", err)
	}
	t.Width = int(sps.Width)
	t.Height = int(sps.Height)
	return t, nil
}

func (t *Track) millis(ticks uint64) int {
	return int(ticks * 1000 / uint64(t.Timescale))
}

func readFragmented(f *mp4.File) (*Track, []Sample, error) {
	if f.Init == nil {
		return nil, nil, ErrNoVideoTrack
	}
	trak, avcC := videoTrack(f.Init.Moov)
	if trak == nil {
		return nil, nil, ErrNoVideoTrack
	}
	track, err := newTrack(trak, avcC)
	if err != nil {
		return nil, nil, err
	}
	track.Fragmented = true

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil {
		for _, t := range f.Init.Moov.Mvex.Trexs {
			if t.TrackID == track.ID {
				trex = t
				break
			}
		}
	}

	var samples []Sample
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, nil, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range full {
				samples = append(samples, Sample{
					Data:        toAnnexB(s.Data),
					TimestampMs: track.millis(s.DecodeTime),
					DurationMs:  track.millis(uint64(s.Dur)),
					Sync:        s.Flags == mp4.SyncSampleFlags,
				})
			}
		}
	}
	return track, samples, nil
}

func readProgressive(f *mp4.File, r io.ReadSeeker) (*Track, []Sample, error) {
	trak, avcC := videoTrack(f.Moov)
	if trak == nil {
		return nil, nil, ErrNoVideoTrack
	}
	track, err := newTrack(trak, avcC)
	if err != nil {
		return nil, nil, err
	}

	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil {
		return nil, nil, fmt.Errorf("avcmp4: no stsz box found")
	}
	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	samples := make([]Sample, 0, stbl.Stsz.SampleNumber)
	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		data, err := sampleData(stbl, r, nr)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", nr, err)
		}
		var decodeTime uint64
		var dur uint32
		if stbl.Stts != nil {
			decodeTime, dur = stbl.Stts.GetDecodeTime(nr)
		}
		samples = append(samples, Sample{
			Data:        toAnnexB(data),
			TimestampMs: track.millis(decodeTime),
			DurationMs:  track.millis(uint64(dur)),
			Sync:        syncSamples[nr] || stbl.Stss == nil,
		})
	}
	return track, samples, nil
}

// sampleData reads one sample of a progressive file through its chunk.
func sampleData(stbl *mp4.StblBox, r io.ReadSeeker, nr uint32) ([]byte, error) {
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc box")
	}
	chunkNr, firstInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return nil, fmt.Errorf("get chunk nr: %w", err)
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		if offset, err = stbl.Stco.GetOffset(chunkNr); err != nil {
			return nil, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no stco or co64 box")
	}
	for s := uint32(firstInChunk); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}

	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, stbl.Stsz.GetSampleSize(int(nr)))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}

// ElementaryStream reads the video track of an MP4 and returns it as one
// Annex B byte stream, parameter sets first.
func ElementaryStream(r io.ReadSeeker) ([]byte, error) {
	track, samples, err := Demux(r)
	if err != nil {
		return nil, err
	}
	out := track.ParameterSets()
	for _, s := range samples {
		out = append(out, s.Data...)
	}
	return out, nil
}
