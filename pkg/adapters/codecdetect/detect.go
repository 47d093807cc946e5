// Package codecdetect inspects MP4 files: which codec the video track uses
// and, for H.264, which engine profile can decode it.
package codecdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vacore/pkg/adapters/avcmp4"
	"github.com/user/vacore/pkg/adapters/h264decoder"
	"github.com/user/vacore/pkg/va"
)

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// ErrNoVideoTrack is returned for files without a video track.
var ErrNoVideoTrack = errors.New("no video track found")

// Info describes the video track of a file.
type Info struct {
	Codec      Codec
	Width      int
	Height     int
	Fragmented bool

	// H.264 only.
	ProfileIDC int
	LevelIDC   int
	// Profile is the engine profile that decodes the stream, or
	// va.ProfileNone when none does.
	Profile    va.Profile
	Samples    int
	SyncCount  int
	DurationMs int
	Bytes      int
}

// Decodable reports whether the engine has a profile for the stream.
func (i *Info) Decodable() bool {
	return i.Codec == CodecH264 && i.Profile != va.ProfileNone
}

// ProbeFile inspects the MP4 file at path.
func ProbeFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Probe(f)
}

// ProbeBytes inspects MP4 data held in memory.
func ProbeBytes(data []byte) (*Info, error) {
	return Probe(bytes.NewReader(data))
}

// Probe inspects an MP4 read from reader. The reader is rewound before
// returning.
func Probe(reader io.ReadSeeker) (*Info, error) {
	codec, err := DetectFromReader(reader)
	if err != nil {
		return nil, err
	}
	info := &Info{Codec: codec, Profile: va.ProfileNone}
	if codec != CodecH264 {
		return info, nil
	}

	track, samples, err := avcmp4.Demux(reader)
	if err != nil {
		return nil, err
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	info.Width, info.Height = track.Width, track.Height
	info.Fragmented = track.Fragmented
	info.Samples = len(samples)
	for _, s := range samples {
		if s.Sync {
			info.SyncCount++
		}
		info.Bytes += len(s.Data)
		if end := s.TimestampMs + s.DurationMs; end > info.DurationMs {
			info.DurationMs = end
		}
	}

	if sps, err := avc.ParseSPSNALUnit(track.SPS[0], false); err == nil {
		info.ProfileIDC = int(sps.Profile)
		info.LevelIDC = int(sps.Level)
	}
	if p, err := h264decoder.Profile(track.SPS[0]); err == nil {
		info.Profile = p
	}
	return info, nil
}

// DetectFromFile detects the video codec used in an MP4 file.
func DetectFromFile(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the video codec from an io.ReadSeeker.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	// Reset reader position for subsequent reads
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	var moov *mp4.MoovBox
	if mp4File.IsFragmented() && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	} else {
		moov = mp4File.Moov
	}
	if moov != nil {
		for _, trak := range moov.Traks {
			if codec, ok := trackCodec(trak); ok {
				return codec, nil
			}
		}
	}
	return CodecUnknown, ErrNoVideoTrack
}

// trackCodec reports the codec of a video track; ok is false for other
// tracks.
func trackCodec(trak *mp4.TrakBox) (Codec, bool) {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return CodecUnknown, false
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown, false
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264, true
		case "hvc1", "hev1":
			return CodecHEVC, true
		case "av01":
			return CodecAV1, true
		}
	}
	return CodecUnknown, true
}
