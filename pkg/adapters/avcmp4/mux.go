package avcmp4

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Mux writes samples as a fragmented MP4 with a single video track. The
// parameter sets are taken from the first sync sample that carries both.
func Mux(w io.Writer, width, height int, fps float64, samples []Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}
	if fps <= 0 {
		return fmt.Errorf("avcmp4: invalid frame rate %v", fps)
	}

	timescale := uint32(fps * 1000)
	trackID := uint32(1)

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")
	trak := init.Moov.Trak

	sps, pps, err := parameterSets(samples)
	if err != nil {
		return err
	}
	avcC, err := mp4.CreateAvcC(sps, pps, true)
	if err != nil {
		return fmt.Errorf("create avcC: %w", err)
	}
	avc1 := mp4.CreateVisualSampleEntryBox("avc1", uint16(width), uint16(height), avcC)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(avc1)
	trak.Tkhd.Width = mp4.Fixed32(width << 16)
	trak.Tkhd.Height = mp4.Fixed32(height << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return fmt.Errorf("create fragment: %w", err)
	}

	frameDur := uint32(float64(timescale) / fps)
	for i, s := range samples {
		var dur uint32
		switch {
		case s.DurationMs > 0:
			dur = uint32(int64(s.DurationMs) * int64(timescale) / 1000)
		case i < len(samples)-1:
			dur = uint32(int64(samples[i+1].TimestampMs-s.TimestampMs) * int64(timescale) / 1000)
		}
		if dur == 0 {
			dur = frameDur
		}

		flags := mp4.NonSyncSampleFlags
		if s.Sync {
			flags = mp4.SyncSampleFlags
		}
		data := toAVCC(s.Data)
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(data)),
				Dur:   dur,
			},
			DecodeTime: uint64(s.TimestampMs) * uint64(timescale) / 1000,
			Data:       data,
		})
	}

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	if err := ftyp.Encode(w); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(w); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(w); err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	return nil
}

func parameterSets(samples []Sample) (sps, pps [][]byte, err error) {
	for _, s := range samples {
		if !s.Sync {
			continue
		}
		sps, pps = nil, nil
		for _, nalu := range SplitAnnexB(s.Data) {
			if len(nalu) == 0 {
				continue
			}
			switch nalu[0] & 0x1f {
			case nalTypeSPS:
				sps = append(sps, append([]byte(nil), nalu...))
			case nalTypePPS:
				pps = append(pps, append([]byte(nil), nalu...))
			}
		}
		if len(sps) > 0 && len(pps) > 0 {
			return sps, pps, nil
		}
	}
	return nil, nil, ErrNoParameterSets
}
