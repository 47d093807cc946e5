package swaccel

import (
	"fmt"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// decode reconstructs I_PCM slices into the target surface. The picture
// parameter buffer carries the Annex B SPS and PPS of the stream; every
// slice data buffer carries one or more slice NAL units.
//
// Macroblocks no slice covers are left untouched and reported as error
// ranges.
func (a *Accelerator) decode(job *ports.Job) (ports.Result, error) {
	var (
		seq     sequence
		haveSPS bool
		slices  [][]byte
	)
	for _, b := range job.Buffers {
		switch b.Type {
		case va.PictureParameterBufferType:
			for _, nal := range nalUnits(b.Data) {
				if nal[0]&0x1f != nalSPS {
					continue
				}
				s, err := parseSPS(unescape(nal[1:]))
				if err != nil {
					return ports.Result{}, fmt.Errorf("sequence parameter set: %w: %w", va.ErrDecodingError, err)
				}
				seq, haveSPS = s, true
			}
		case va.SliceDataBufferType:
			slices = append(slices, b.Data)
		}
	}
	if !haveSPS {
		return ports.Result{}, fmt.Errorf("decode without a sequence parameter set: %w", va.ErrInvalidParameter)
	}
	planes, err := newYUVPlanes(job.Surface)
	if err != nil {
		return ports.Result{}, err
	}
	if seq.mbWidth > (planes.width()+15)/16 || seq.mbHeight > (planes.height()+15)/16 ||
		seq.width() > planes.width() || seq.height() > planes.height() {
		return ports.Result{}, fmt.Errorf("picture %dx%d on %dx%d surface: %w",
			seq.width(), seq.height(), planes.width(), planes.height(), va.ErrDecodingError)
	}

	total := seq.mbWidth * seq.mbHeight
	covered := make([]bool, total)
	broken := make(map[int]bool)
	mb := make([]byte, pcmMBSize)
	for _, data := range slices {
		for _, nal := range nalUnits(data) {
			typ := nal[0] & 0x1f
			if typ != nalSlice && typ != nalIDRSlice {
				continue
			}
			r := &bitReader{data: unescape(nal[1:])}
			h, err := parseSliceHeader(r, typ)
			if err != nil || h.firstMB >= total {
				a.logger.Debug("Dropping slice: %v", err)
				continue
			}
			addr := h.firstMB
			for addr < total {
				if err := readPCM(r, mb); err != nil {
					broken[addr] = true
					break
				}
				planes.writeMB(addr%seq.mbWidth, addr/seq.mbWidth, mb)
				covered[addr] = true
				addr++
				if !r.moreData() {
					break
				}
			}
		}
	}

	errs := errorRanges(covered, broken)
	if len(errs) == 0 {
		return ports.Result{}, nil
	}
	missing := 0
	for _, e := range errs {
		missing += int(e.NumMB)
	}
	return ports.Result{MBErrors: errs},
		fmt.Errorf("%d of %d macroblocks not decoded: %w", missing, total, va.ErrDecodingError)
}

// readPCM reads one I_PCM macroblock layer.
func readPCM(r *bitReader, out []byte) error {
	typ, err := r.ue()
	if err != nil {
		return err
	}
	if typ != mbTypeIPCM {
		return errUnsupportedSlice
	}
	if err := r.alignZero(); err != nil {
		return err
	}
	samples, err := r.bytes(pcmMBSize)
	if err != nil {
		return err
	}
	copy(out, samples)
	return nil
}

// errorRanges turns the uncovered runs of covered into error records. A
// run that starts where a slice broke off is a macroblock error, any other
// run a missing slice.
func errorRanges(covered []bool, broken map[int]bool) []va.SurfaceDecodeMBErrors {
	var out []va.SurfaceDecodeMBErrors
	for i := 0; i < len(covered); {
		if covered[i] {
			i++
			continue
		}
		start := i
		for i < len(covered) && !covered[i] {
			i++
		}
		typ := va.DecodeSliceMissing
		if broken[start] {
			typ = va.DecodeMBError
		}
		out = append(out, va.SurfaceDecodeMBErrors{
			Status:          1,
			StartMB:         uint32(start),
			EndMB:           uint32(i - 1),
			DecodeErrorType: typ,
			NumMB:           uint32(i - start),
		})
	}
	return out
}

// nalUnits splits an Annex B payload, or returns a payload without start
// codes as a single NAL unit. Empty units are dropped.
func nalUnits(data []byte) [][]byte {
	nalus := splitAnnexB(data)
	if nalus == nil && len(data) > 0 {
		nalus = [][]byte{data}
	}
	out := nalus[:0]
	for _, n := range nalus {
		if len(n) > 0 {
			out = append(out, n)
		}
	}
	return out
}
