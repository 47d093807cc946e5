package swaccel

import (
	"fmt"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// encode codes the target surface as one IDR picture of I_PCM macroblocks.
// Each NAL unit becomes one coded segment.
func (a *Accelerator) encode(job *ports.Job) (ports.Result, error) {
	var (
		seqParams *SequenceParams
		picParams PictureParams
		packed    [][]byte
		coded     va.BufferID
		hasCoded  bool
	)
	for _, b := range job.Buffers {
		switch b.Type {
		case va.EncSequenceParameterBufferType:
			var p SequenceParams
			if err := unmarshal(b.Data, &p); err != nil {
				return ports.Result{}, err
			}
			seqParams = &p
		case va.EncPictureParameterBufferType:
			if err := unmarshal(b.Data, &picParams); err != nil {
				return ports.Result{}, err
			}
		case va.EncPackedHeaderDataBufferType:
			packed = append(packed, b.Data)
		case va.EncCodedBufferType:
			coded, hasCoded = b.ID, true
		}
	}
	if !hasCoded {
		return ports.Result{}, fmt.Errorf("encode without a coded buffer: %w", va.ErrInvalidParameter)
	}

	planes, err := newYUVPlanes(job.Surface)
	if err != nil {
		return ports.Result{}, err
	}
	var level uint8
	if seqParams != nil {
		level = uint8(seqParams.LevelIDC)
	}
	seq, err := newSequence(job.Profile, int(job.Width), int(job.Height), level)
	if err != nil {
		return ports.Result{}, err
	}

	var nalus [][]byte
	if seqParams != nil {
		nalus = append(nalus, nalUnit(3, nalSPS, seq.spsRBSP()), nalUnit(3, nalPPS, ppsRBSP()))
	}
	nalus = append(nalus, packed...)
	nalus = append(nalus, nalUnit(3, nalIDRSlice, a.sliceRBSP(planes, seq, picParams.IDRPicID)))

	res := ports.Result{CodedBuffer: coded, Coded: make([]va.CodedBufferSegment, len(nalus))}
	for i, nal := range nalus {
		res.Coded[i] = va.CodedBufferSegment{
			Size:   uint32(len(nal)),
			Status: va.CodedBufStatusSingleNALU,
			Buf:    nal,
		}
	}
	a.logger.Debug("Encoded %dx%d picture into %d segments", job.Width, job.Height, len(nalus))
	return res, nil
}

func (a *Accelerator) sliceRBSP(planes *yuvPlanes, seq sequence, idrPicID uint32) []byte {
	w := &bitWriter{buf: make([]byte, 0, seq.mbWidth*seq.mbHeight*(pcmMBSize+2)+16)}
	sliceHeader(w, 0, idrPicID)
	mb := make([]byte, pcmMBSize)
	for y := 0; y < seq.mbHeight; y++ {
		for x := 0; x < seq.mbWidth; x++ {
			w.ue(mbTypeIPCM)
			w.alignZero()
			planes.readMB(x, y, mb)
			w.bytes(mb)
		}
	}
	return w.trailing()
}
