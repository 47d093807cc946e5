package swaccel

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// Transfer implements ports.Accelerator. Regions of equal size are copied,
// others scaled bilinearly.
func (a *Accelerator) Transfer(ctx context.Context, req ports.TransferRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := newFrameImage(req.Src)
	if err != nil {
		return err
	}
	dst, err := newFrameImage(req.Dst)
	if err != nil {
		return err
	}
	if req.SrcRect.Size() == req.DstRect.Size() {
		draw.Draw(dst, req.DstRect, src, req.SrcRect.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, req.DstRect, src, req.SrcRect, draw.Src, nil)
	}
	return nil
}

// frameImage exposes frame memory as a draw.Image.
type frameImage struct {
	ref    ports.FrameRef
	yuv    *yuvPlanes
	rgbOff [4]int // byte offsets of R, G, B, A within a pixel
	alpha  bool
}

func newFrameImage(ref ports.FrameRef) (*frameImage, error) {
	f := &frameImage{ref: ref}
	switch ref.Layout.FourCC {
	case va.FourCCBGRA:
		f.rgbOff, f.alpha = [4]int{2, 1, 0, 3}, true
	case va.FourCCBGRX:
		f.rgbOff = [4]int{2, 1, 0, 3}
	case va.FourCCRGBA:
		f.rgbOff, f.alpha = [4]int{0, 1, 2, 3}, true
	case va.FourCCRGBX:
		f.rgbOff = [4]int{0, 1, 2, 3}
	default:
		p, err := newYUVPlanes(ref)
		if err != nil {
			return nil, fmt.Errorf("transfer: %w", err)
		}
		f.yuv = p
		return f, nil
	}
	if uint32(len(ref.Data)) < ref.Layout.DataSize {
		return nil, fmt.Errorf("transfer: image memory of %d bytes: %w", len(ref.Data), va.ErrInvalidImage)
	}
	return f, nil
}

func (f *frameImage) ColorModel() color.Model {
	if f.yuv != nil {
		return color.YCbCrModel
	}
	return color.RGBAModel
}

func (f *frameImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(f.ref.Layout.Width), int(f.ref.Layout.Height))
}

func (f *frameImage) pixel(x, y int) int {
	return int(f.ref.Layout.Offsets[0]) + y*int(f.ref.Layout.Pitches[0]) + 4*x
}

func (f *frameImage) At(x, y int) color.Color {
	if !image.Pt(x, y).In(f.Bounds()) {
		return color.RGBA{}
	}
	if f.yuv != nil {
		cb, cr := f.yuv.chroma(x/2, y/2)
		return color.YCbCr{Y: f.yuv.luma(x, y), Cb: cb, Cr: cr}
	}
	o := f.pixel(x, y)
	d := f.ref.Data
	c := color.RGBA{R: d[o+f.rgbOff[0]], G: d[o+f.rgbOff[1]], B: d[o+f.rgbOff[2]], A: 0xff}
	if f.alpha {
		c.A = d[o+f.rgbOff[3]]
	}
	return c
}

// Set writes c at (x, y). Chroma is shared by a 2x2 block; the last write
// to a block wins.
func (f *frameImage) Set(x, y int, c color.Color) {
	if !image.Pt(x, y).In(f.Bounds()) {
		return
	}
	if f.yuv != nil {
		ycc := color.YCbCrModel.Convert(c).(color.YCbCr)
		f.yuv.setLuma(x, y, ycc.Y)
		f.yuv.setChroma(x/2, y/2, ycc.Cb, ycc.Cr)
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	o := f.pixel(x, y)
	d := f.ref.Data
	d[o+f.rgbOff[0]] = rgba.R
	d[o+f.rgbOff[1]] = rgba.G
	d[o+f.rgbOff[2]] = rgba.B
	if f.alpha {
		d[o+f.rgbOff[3]] = rgba.A
	} else {
		d[o+f.rgbOff[3]] = 0xff
	}
}

var _ draw.Image = (*frameImage)(nil)
