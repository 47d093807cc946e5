package swaccel

import (
	"fmt"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// yuvPlanes addresses the samples of a 4:2:0 frame.
type yuvPlanes struct {
	ref        ports.FrameRef
	interleave bool // NV12: Cb and Cr share plane 1
	cbPlane    int
	crPlane    int
	gray       bool
}

func newYUVPlanes(ref ports.FrameRef) (*yuvPlanes, error) {
	p := &yuvPlanes{ref: ref}
	switch ref.Layout.FourCC {
	case va.FourCCNV12:
		p.interleave = true
	case va.FourCCI420:
		p.cbPlane, p.crPlane = 1, 2
	case va.FourCCYV12:
		p.cbPlane, p.crPlane = 2, 1
	case va.FourCCY800:
		p.gray = true
	default:
		return nil, fmt.Errorf("surface format %s: %w", va.FourCCString(ref.Layout.FourCC), va.ErrUnsupportedRTFormat)
	}
	if uint32(len(ref.Data)) < ref.Layout.DataSize {
		return nil, fmt.Errorf("surface memory of %d bytes, layout needs %d: %w", len(ref.Data), ref.Layout.DataSize, va.ErrInvalidSurface)
	}
	return p, nil
}

func (p *yuvPlanes) width() int  { return int(p.ref.Layout.Width) }
func (p *yuvPlanes) height() int { return int(p.ref.Layout.Height) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *yuvPlanes) lumaOffset(x, y int) int {
	l := p.ref.Layout
	return int(l.Offsets[0]) + y*int(l.Pitches[0]) + x
}

// chromaOffsets returns the Cb and Cr offsets of chroma sample (x, y).
func (p *yuvPlanes) chromaOffsets(x, y int) (int, int) {
	l := p.ref.Layout
	if p.interleave {
		o := int(l.Offsets[1]) + y*int(l.Pitches[1]) + 2*x
		return o, o + 1
	}
	cb := int(l.Offsets[p.cbPlane]) + y*int(l.Pitches[p.cbPlane]) + x
	cr := int(l.Offsets[p.crPlane]) + y*int(l.Pitches[p.crPlane]) + x
	return cb, cr
}

// luma returns Y at (x, y), replicating edge samples outside the frame.
func (p *yuvPlanes) luma(x, y int) byte {
	x = clampInt(x, 0, p.width()-1)
	y = clampInt(y, 0, p.height()-1)
	return p.ref.Data[p.lumaOffset(x, y)]
}

func (p *yuvPlanes) chroma(x, y int) (byte, byte) {
	if p.gray {
		return 128, 128
	}
	x = clampInt(x, 0, (p.width()+1)/2-1)
	y = clampInt(y, 0, (p.height()+1)/2-1)
	cb, cr := p.chromaOffsets(x, y)
	return p.ref.Data[cb], p.ref.Data[cr]
}

func (p *yuvPlanes) setLuma(x, y int, v byte) {
	if x < p.width() && y < p.height() {
		p.ref.Data[p.lumaOffset(x, y)] = v
	}
}

func (p *yuvPlanes) setChroma(x, y int, cb, cr byte) {
	if p.gray || x >= (p.width()+1)/2 || y >= (p.height()+1)/2 {
		return
	}
	ocb, ocr := p.chromaOffsets(x, y)
	p.ref.Data[ocb] = cb
	p.ref.Data[ocr] = cr
}

// readMB copies macroblock (mbx, mby) in I_PCM sample order: 256 luma,
// 64 Cb, 64 Cr.
func (p *yuvPlanes) readMB(mbx, mby int, out []byte) {
	i := 0
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			out[i] = p.luma(mbx*16+x, mby*16+y)
			i++
		}
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			cb, cr := p.chroma(mbx*8+x, mby*8+y)
			out[256+y*8+x] = cb
			out[320+y*8+x] = cr
		}
	}
}

// writeMB stores I_PCM samples of macroblock (mbx, mby), cropping at the
// frame edge.
func (p *yuvPlanes) writeMB(mbx, mby int, in []byte) {
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			p.setLuma(mbx*16+x, mby*16+y, in[y*16+x])
		}
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p.setChroma(mbx*8+x, mby*8+y, in[256+y*8+x], in[320+y*8+x])
		}
	}
}

// pcmMBSize is the sample payload of one 4:2:0 8-bit I_PCM macroblock.
const pcmMBSize = 384
