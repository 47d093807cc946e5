// Package avcmp4 stores H.264 access units in MP4 files and reads them back.
//
// Samples are exchanged in Annex B form, the way the engine's coded buffers
// hold them. Parameter sets travel in the avcC box and are stripped from
// sample data when writing.
package avcmp4

import (
	"errors"
)

var (
	// ErrNoSamples is returned when muxing an empty sample list.
	ErrNoSamples = errors.New("avcmp4: no samples")

	// ErrNoParameterSets is returned when no sync sample carries an SPS and a PPS.
	ErrNoParameterSets = errors.New("avcmp4: SPS or PPS not found")

	// ErrNoVideoTrack is returned when a file has no AVC video track.
	ErrNoVideoTrack = errors.New("avcmp4: no video track found")
)

// Sample is one access unit.
type Sample struct {
	// Data holds Annex B NAL units.
	Data        []byte
	TimestampMs int
	DurationMs  int
	Sync        bool
}

// Track describes the video track of a file.
type Track struct {
	ID         uint32
	Width      int
	Height     int
	Timescale  uint32
	Fragmented bool

	// SPS and PPS are the raw parameter set NAL units from the avcC box.
	SPS [][]byte
	PPS [][]byte
}

// ParameterSets returns the parameter sets of t in Annex B form.
func (t *Track) ParameterSets() []byte {
	var out []byte
	for _, n := range t.SPS {
		out = append(out, startCode...)
		out = append(out, n...)
	}
	for _, n := range t.PPS {
		out = append(out, startCode...)
		out = append(out, n...)
	}
	return out
}

var startCode = []byte{0, 0, 0, 1}

const (
	nalTypeSPS = 7
	nalTypePPS = 8
)

// SplitAnnexB splits an Annex B byte stream into NAL units. Both three and
// four byte start codes are recognized.
func SplitAnnexB(data []byte) [][]byte {
	var nalus [][]byte
	start := 0
	i := 0

	for i < len(data) {
		if i+2 < len(data) && data[i] == 0 && data[i+1] == 0 {
			startCodeLen := 0
			if data[i+2] == 1 {
				startCodeLen = 3
			} else if i+3 < len(data) && data[i+2] == 0 && data[i+3] == 1 {
				startCodeLen = 4
			}

			if startCodeLen > 0 {
				if i > start {
					nalus = append(nalus, data[start:i])
				}
				i += startCodeLen
				start = i
				continue
			}
		}
		i++
	}

	if start < len(data) {
		nalus = append(nalus, data[start:])
	}
	return nalus
}

// toAVCC converts Annex B data to 4-byte length prefixed NAL units,
// dropping parameter sets.
func toAVCC(data []byte) []byte {
	nalus := SplitAnnexB(data)
	out := make([]byte, 0, len(data)+4*len(nalus))
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		if t := nalu[0] & 0x1f; t == nalTypeSPS || t == nalTypePPS {
			continue
		}
		n := len(nalu)
		out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
		out = append(out, nalu...)
	}
	return out
}

// toAnnexB converts length prefixed NAL units to Annex B. A truncated
// trailing unit is dropped.
func toAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if offset+naluLen > len(data) {
			break
		}

		result = append(result, startCode...)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}
	return result
}
