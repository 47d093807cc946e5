// Package negotiate validates requested config and surface attributes
// against a backend capability table and resolves them into the immutable
// attribute sets stored on configs and surfaces.
package negotiate

import (
	"fmt"
	"sort"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// Negotiator answers capability queries and resolves attribute lists.
// It is immutable after New and safe for concurrent use.
type Negotiator struct {
	caps     ports.Capabilities
	pairs    map[Pair]ports.CodecCaps
	profiles []va.Profile
	rtMask   uint32
}

// Option adjusts the capability table before it is indexed.
type Option func(*ports.Capabilities)

// Pair is a (profile, entrypoint) combination.
type Pair struct {
	Profile    va.Profile
	Entrypoint va.Entrypoint
}

// WithDisabled removes pairs from the table.
func WithDisabled(pairs ...Pair) Option {
	return func(c *ports.Capabilities) {
		kept := c.Codecs[:0:0]
		for _, cc := range c.Codecs {
			drop := false
			for _, p := range pairs {
				if cc.Profile == p.Profile && cc.Entrypoint == p.Entrypoint {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, cc)
			}
		}
		c.Codecs = kept
	}
}

// WithMaxResolution lowers the maximum picture size. Zero keeps the backend value.
func WithMaxResolution(width, height uint32) Option {
	return func(c *ports.Capabilities) {
		if width > 0 && width < c.MaxWidth {
			c.MaxWidth = width
		}
		if height > 0 && height < c.MaxHeight {
			c.MaxHeight = height
		}
	}
}

// WithMemoryTypes restricts the memory types surfaces may use.
func WithMemoryTypes(mask uint32) Option {
	return func(c *ports.Capabilities) {
		if mask != 0 {
			c.MemoryTypes &= mask
		}
	}
}

// New indexes caps.
func New(caps ports.Capabilities, opts ...Option) *Negotiator {
	for _, opt := range opts {
		opt(&caps)
	}

	n := &Negotiator{
		caps:  caps,
		pairs: make(map[Pair]ports.CodecCaps, len(caps.Codecs)),
	}
	seen := make(map[va.Profile]bool)
	for _, cc := range caps.Codecs {
		n.pairs[Pair{cc.Profile, cc.Entrypoint}] = cc
		if !seen[cc.Profile] {
			seen[cc.Profile] = true
			n.profiles = append(n.profiles, cc.Profile)
		}
		for _, a := range cc.Attribs {
			if a.Type == va.ConfigAttribRTFormat {
				n.rtMask |= a.Supported
			}
		}
	}
	return n
}

// Capabilities returns the effective capability table.
func (n *Negotiator) Capabilities() ports.Capabilities { return n.caps }

// MaxNumProfiles is the bound for QueryConfigProfiles.
func (n *Negotiator) MaxNumProfiles() int { return len(n.profiles) }

// MaxNumEntrypoints is the bound for QueryConfigEntrypoints.
func (n *Negotiator) MaxNumEntrypoints() int {
	counts := make(map[va.Profile]int)
	max := 0
	for _, cc := range n.caps.Codecs {
		counts[cc.Profile]++
		if counts[cc.Profile] > max {
			max = counts[cc.Profile]
		}
	}
	return max
}

// MaxNumConfigAttributes is the bound for config attribute lists.
func (n *Negotiator) MaxNumConfigAttributes() int {
	max := 0
	for _, cc := range n.caps.Codecs {
		if len(cc.Attribs) > max {
			max = len(cc.Attribs)
		}
	}
	return max
}

// Profiles lists supported profiles in table order.
func (n *Negotiator) Profiles() []va.Profile {
	return append([]va.Profile(nil), n.profiles...)
}

// Entrypoints lists the entrypoints of profile in table order.
func (n *Negotiator) Entrypoints(profile va.Profile) ([]va.Entrypoint, error) {
	var eps []va.Entrypoint
	for _, cc := range n.caps.Codecs {
		if cc.Profile == profile {
			eps = append(eps, cc.Entrypoint)
		}
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%v: %w", profile, va.ErrUnsupportedProfile)
	}
	return eps, nil
}

func (n *Negotiator) lookup(profile va.Profile, entrypoint va.Entrypoint) (ports.CodecCaps, error) {
	if cc, ok := n.pairs[Pair{profile, entrypoint}]; ok {
		return cc, nil
	}
	for _, p := range n.profiles {
		if p == profile {
			return ports.CodecCaps{}, fmt.Errorf("%v/%v: %w", profile, entrypoint, va.ErrUnsupportedEntrypoint)
		}
	}
	return ports.CodecCaps{}, fmt.Errorf("%v: %w", profile, va.ErrUnsupportedProfile)
}

// Supports reports whether the pair is implemented.
func (n *Negotiator) Supports(profile va.Profile, entrypoint va.Entrypoint) error {
	_, err := n.lookup(profile, entrypoint)
	return err
}

// GetConfigAttributes fills in the supported value of every requested type,
// or va.AttribNotSupported for types the pair does not implement.
func (n *Negotiator) GetConfigAttributes(profile va.Profile, entrypoint va.Entrypoint, types []va.ConfigAttribType) ([]va.ConfigAttrib, error) {
	cc, err := n.lookup(profile, entrypoint)
	if err != nil {
		return nil, err
	}
	out := make([]va.ConfigAttrib, len(types))
	for i, t := range types {
		out[i] = va.ConfigAttrib{Type: t, Value: va.AttribNotSupported}
		for _, a := range cc.Attribs {
			if a.Type == t {
				out[i].Value = a.Supported
				break
			}
		}
	}
	return out, nil
}

// ResolveConfig validates requested against the pair's attributes and merges
// it over the defaults. Later duplicates overwrite earlier ones. The result
// is ordered like the capability table.
func (n *Negotiator) ResolveConfig(profile va.Profile, entrypoint va.Entrypoint, requested []va.ConfigAttrib) ([]va.ConfigAttrib, error) {
	cc, err := n.lookup(profile, entrypoint)
	if err != nil {
		return nil, err
	}

	resolved := make([]va.ConfigAttrib, len(cc.Attribs))
	pos := make(map[va.ConfigAttribType]int, len(cc.Attribs))
	for i, a := range cc.Attribs {
		resolved[i] = va.ConfigAttrib{Type: a.Type, Value: a.Default}
		pos[a.Type] = i
	}

	for _, req := range requested {
		i, ok := pos[req.Type]
		if !ok {
			return nil, fmt.Errorf("%v on %v/%v: %w", req.Type, profile, entrypoint, va.ErrAttrNotSupported)
		}
		if err := checkConfigValue(cc.Attribs[i], req.Value); err != nil {
			return nil, err
		}
		resolved[i].Value = req.Value
	}
	return resolved, nil
}

type valueKind int

const (
	kindExact valueKind = iota
	kindMask
	kindMax
)

var configValueKinds = map[va.ConfigAttribType]valueKind{
	va.ConfigAttribRTFormat:          kindMask,
	va.ConfigAttribRateControl:       kindMask,
	va.ConfigAttribDecSliceMode:      kindMask,
	va.ConfigAttribDecProcessing:     kindMask,
	va.ConfigAttribEncPackedHeaders:  kindMask,
	va.ConfigAttribEncInterlaced:     kindMask,
	va.ConfigAttribEncSliceStructure: kindMask,
	va.ConfigAttribEncIntraRefresh:   kindMask,
	va.ConfigAttribEncMaxRefFrames:   kindMax,
	va.ConfigAttribEncMaxSlices:      kindMax,
	va.ConfigAttribMaxPictureWidth:   kindMax,
	va.ConfigAttribMaxPictureHeight:  kindMax,
	va.ConfigAttribEncQualityRange:   kindMax,
	va.ConfigAttribEncSkipFrame:      kindMax,
	va.ConfigAttribContextPriority:   kindMax,
}

func checkConfigValue(a ports.AttribCaps, v uint32) error {
	switch configValueKinds[a.Type] {
	case kindMask:
		if v&^a.Supported != 0 {
			if a.Type == va.ConfigAttribRTFormat {
				return fmt.Errorf("rt format %#x not in %#x: %w", v, a.Supported, va.ErrUnsupportedRTFormat)
			}
			return fmt.Errorf("%v value %#x not in %#x: %w", a.Type, v, a.Supported, va.ErrInvalidValue)
		}
		if v == 0 && a.Type == va.ConfigAttribRTFormat {
			return fmt.Errorf("empty rt format: %w", va.ErrUnsupportedRTFormat)
		}
	case kindMax:
		if v > a.Supported {
			return fmt.Errorf("%v value %d above %d: %w", a.Type, v, a.Supported, va.ErrInvalidValue)
		}
	default:
		if v != a.Supported {
			return fmt.Errorf("%v value %#x, supported %#x: %w", a.Type, v, a.Supported, va.ErrInvalidValue)
		}
	}
	return nil
}

// ConfigRTFormat returns the RT format mask of a resolved attribute list.
func ConfigRTFormat(attribs []va.ConfigAttrib) uint32 {
	for _, a := range attribs {
		if a.Type == va.ConfigAttribRTFormat {
			return a.Value
		}
	}
	return 0
}

// SurfaceAttributes lists the surface attributes a config supports.
// One PixelFormat entry is reported per compatible fourcc.
func (n *Negotiator) SurfaceAttributes(attribs []va.ConfigAttrib) []va.SurfaceAttrib {
	rt := ConfigRTFormat(attribs)
	if rt == 0 {
		rt = n.rtMask
	}

	var out []va.SurfaceAttrib
	for _, f := range n.pixelFormats(rt) {
		out = append(out, va.SurfaceAttrib{
			Type:  va.SurfaceAttribPixelFormat,
			Flags: va.SurfaceAttribGettable | va.SurfaceAttribSettable,
			Value: va.IntValue(int32(f)),
		})
	}
	out = append(out,
		va.SurfaceAttrib{Type: va.SurfaceAttribMinWidth, Flags: va.SurfaceAttribGettable, Value: va.IntValue(int32(n.caps.MinWidth))},
		va.SurfaceAttrib{Type: va.SurfaceAttribMaxWidth, Flags: va.SurfaceAttribGettable, Value: va.IntValue(int32(n.caps.MaxWidth))},
		va.SurfaceAttrib{Type: va.SurfaceAttribMinHeight, Flags: va.SurfaceAttribGettable, Value: va.IntValue(int32(n.caps.MinHeight))},
		va.SurfaceAttrib{Type: va.SurfaceAttribMaxHeight, Flags: va.SurfaceAttribGettable, Value: va.IntValue(int32(n.caps.MaxHeight))},
		va.SurfaceAttrib{
			Type:  va.SurfaceAttribMemoryType,
			Flags: va.SurfaceAttribGettable | va.SurfaceAttribSettable,
			Value: va.IntValue(int32(n.caps.MemoryTypes)),
		},
		va.SurfaceAttrib{
			Type:  va.SurfaceAttribExternalBufferDescriptor,
			Flags: va.SurfaceAttribSettable,
			Value: va.PointerValue{},
		},
		va.SurfaceAttrib{
			Type:  va.SurfaceAttribUsageHint,
			Flags: va.SurfaceAttribGettable | va.SurfaceAttribSettable,
			Value: va.IntValue(int32(usageHintMask)),
		},
	)
	return out
}

const usageHintMask = va.UsageHintDecoder | va.UsageHintEncoder | va.UsageHintVPPRead |
	va.UsageHintVPPWrite | va.UsageHintDisplay | va.UsageHintExport

var candidateFourCCs = []uint32{
	va.FourCCNV12, va.FourCCI420, va.FourCCYV12, va.FourCCNV21, va.FourCCP010,
	va.FourCCYUY2, va.FourCCUYVY, va.FourCCAYUV, va.FourCCY800,
	va.FourCCBGRA, va.FourCCBGRX, va.FourCCRGBA, va.FourCCRGBX,
	va.FourCCARGB, va.FourCCXRGB, va.FourCCABGR, va.FourCCXBGR,
}

func (n *Negotiator) pixelFormats(rtMask uint32) []uint32 {
	var out []uint32
	for _, f := range candidateFourCCs {
		if rt, ok := va.RTFormatOf(f); ok && rt&rtMask != 0 {
			out = append(out, f)
		}
	}
	return out
}

// SurfaceSpec is the resolved form of a createSurfaces request.
type SurfaceSpec struct {
	RTFormat  uint32
	FourCC    uint32
	Width     uint32
	Height    uint32
	MemType   uint32
	UsageHint uint32
	Layout    va.Layout
	External  *va.ExternalBuffers

	// Attribs is the merged list retrievable after creation.
	Attribs []va.SurfaceAttrib
}

// ResolveSurface validates a createSurfaces request. Nothing is allocated.
func (n *Negotiator) ResolveSurface(rtFormat, width, height uint32, requested []va.SurfaceAttrib) (SurfaceSpec, error) {
	if rtFormat&n.rtMask == 0 || rtFormat&(rtFormat-1) != 0 {
		return SurfaceSpec{}, fmt.Errorf("rt format %#x: %w", rtFormat, va.ErrUnsupportedRTFormat)
	}
	if width < n.caps.MinWidth || width > n.caps.MaxWidth || height < n.caps.MinHeight || height > n.caps.MaxHeight || width == 0 || height == 0 {
		return SurfaceSpec{}, fmt.Errorf("%dx%d outside %dx%d..%dx%d: %w",
			width, height, n.caps.MinWidth, n.caps.MinHeight, n.caps.MaxWidth, n.caps.MaxHeight, va.ErrResolutionNotSupported)
	}

	fourcc, _ := va.DefaultFourCC(rtFormat)
	spec := SurfaceSpec{
		RTFormat:  rtFormat,
		FourCC:    fourcc,
		Width:     width,
		Height:    height,
		MemType:   va.MemTypeVA,
		UsageHint: va.UsageHintGeneric,
	}

	merged := make(map[va.SurfaceAttribType]va.SurfaceAttrib)
	var order []va.SurfaceAttribType
	for _, a := range requested {
		if _, ok := merged[a.Type]; !ok {
			order = append(order, a.Type)
		}
		merged[a.Type] = a
	}

	for _, t := range order {
		a := merged[t]
		switch t {
		case va.SurfaceAttribPixelFormat:
			v, ok := a.Value.(va.IntValue)
			if !ok {
				return SurfaceSpec{}, fmt.Errorf("pixel format of type %d: %w", a.Value.Type(), va.ErrInvalidValue)
			}
			f := uint32(v)
			rt, known := va.RTFormatOf(f)
			if !known || rt != rtFormat || !containsFourCC(n.pixelFormats(n.rtMask), f) {
				return SurfaceSpec{}, fmt.Errorf("pixel format %s for rt format %#x: %w", va.FourCCString(f), rtFormat, va.ErrUnsupportedRTFormat)
			}
			spec.FourCC = f
		case va.SurfaceAttribMemoryType:
			v, ok := a.Value.(va.IntValue)
			if !ok {
				return SurfaceSpec{}, fmt.Errorf("memory type of type %d: %w", a.Value.Type(), va.ErrInvalidValue)
			}
			mt := uint32(v)
			if mt == 0 || mt&(mt-1) != 0 || mt&n.caps.MemoryTypes == 0 {
				return SurfaceSpec{}, fmt.Errorf("memory type %#x: %w", mt, va.ErrUnsupportedMemoryType)
			}
			spec.MemType = mt
		case va.SurfaceAttribUsageHint:
			v, ok := a.Value.(va.IntValue)
			if !ok {
				return SurfaceSpec{}, fmt.Errorf("usage hint of type %d: %w", a.Value.Type(), va.ErrInvalidValue)
			}
			if uint32(v)&^usageHintMask != 0 {
				return SurfaceSpec{}, fmt.Errorf("usage hint %#x: %w", uint32(v), va.ErrInvalidValue)
			}
			spec.UsageHint = uint32(v)
		case va.SurfaceAttribExternalBufferDescriptor:
			p, ok := a.Value.(va.PointerValue)
			if !ok {
				return SurfaceSpec{}, fmt.Errorf("external descriptor of type %d: %w", a.Value.Type(), va.ErrInvalidValue)
			}
			ext, ok := p.Ptr.(*va.ExternalBuffers)
			if !ok || ext == nil {
				return SurfaceSpec{}, fmt.Errorf("external descriptor payload: %w", va.ErrInvalidParameter)
			}
			spec.External = ext
		default:
			return SurfaceSpec{}, fmt.Errorf("%v is not settable: %w", t, va.ErrAttrNotSupported)
		}
	}

	layout, ok := va.ComputeLayout(spec.FourCC, width, height)
	if !ok {
		return SurfaceSpec{}, fmt.Errorf("no layout for %s: %w", va.FourCCString(spec.FourCC), va.ErrUnsupportedRTFormat)
	}
	spec.Layout = layout

	if spec.External != nil {
		if spec.MemType != va.MemTypeUserPtr {
			return SurfaceSpec{}, fmt.Errorf("external descriptor needs user pointer memory: %w", va.ErrInvalidParameter)
		}
		l, err := externalLayout(spec, spec.External)
		if err != nil {
			return SurfaceSpec{}, err
		}
		spec.Layout = l
	} else if spec.MemType == va.MemTypeUserPtr {
		return SurfaceSpec{}, fmt.Errorf("user pointer memory without descriptor: %w", va.ErrInvalidParameter)
	}

	spec.Attribs = resolvedSurfaceAttribs(spec)
	return spec, nil
}

func externalLayout(spec SurfaceSpec, ext *va.ExternalBuffers) (va.Layout, error) {
	if ext.PixelFormat != 0 && ext.PixelFormat != spec.FourCC {
		return va.Layout{}, fmt.Errorf("descriptor format %s, surface %s: %w",
			va.FourCCString(ext.PixelFormat), va.FourCCString(spec.FourCC), va.ErrInvalidParameter)
	}
	if ext.Width != spec.Width || ext.Height != spec.Height {
		return va.Layout{}, fmt.Errorf("descriptor %dx%d, surface %dx%d: %w",
			ext.Width, ext.Height, spec.Width, spec.Height, va.ErrInvalidParameter)
	}
	def := spec.Layout
	if ext.NumPlanes != def.NumPlanes {
		return va.Layout{}, fmt.Errorf("descriptor has %d planes, want %d: %w", ext.NumPlanes, def.NumPlanes, va.ErrInvalidParameter)
	}

	l := va.Layout{FourCC: spec.FourCC, Width: spec.Width, Height: spec.Height, NumPlanes: ext.NumPlanes, DataSize: ext.DataSize}
	for i := uint32(0); i < ext.NumPlanes; i++ {
		rows := planeRows(spec.FourCC, spec.Height, i)
		if ext.Pitches[i] < rowBytes(spec.FourCC, spec.Width, i) {
			return va.Layout{}, fmt.Errorf("plane %d pitch %d too small: %w", i, ext.Pitches[i], va.ErrInvalidParameter)
		}
		if uint64(ext.Offsets[i])+uint64(ext.Pitches[i])*uint64(rows) > uint64(ext.DataSize) {
			return va.Layout{}, fmt.Errorf("plane %d exceeds data size %d: %w", i, ext.DataSize, va.ErrInvalidParameter)
		}
		l.Pitches[i] = ext.Pitches[i]
		l.Offsets[i] = ext.Offsets[i]
	}
	return l, nil
}

// rowBytes is the minimum number of bytes in one row of plane i.
func rowBytes(fourcc, width, plane uint32) uint32 {
	switch fourcc {
	case va.FourCCNV12, va.FourCCNV21, va.FourCCY800:
		if plane == 0 {
			return width
		}
		return (width + 1) &^ 1
	case va.FourCCI420, va.FourCCYV12:
		if plane == 0 {
			return width
		}
		return (width + 1) / 2
	case va.FourCCP010:
		if plane == 0 {
			return width * 2
		}
		return ((width + 1) &^ 1) * 2
	case va.FourCCYUY2, va.FourCCUYVY:
		return width * 2
	}
	return width * 4
}

func planeRows(fourcc, height, plane uint32) uint32 {
	if plane == 0 {
		return height
	}
	switch fourcc {
	case va.FourCCNV12, va.FourCCNV21, va.FourCCI420, va.FourCCYV12, va.FourCCP010:
		return (height + 1) / 2
	}
	return height
}

func resolvedSurfaceAttribs(spec SurfaceSpec) []va.SurfaceAttrib {
	out := []va.SurfaceAttrib{
		{Type: va.SurfaceAttribPixelFormat, Flags: va.SurfaceAttribGettable | va.SurfaceAttribSettable, Value: va.IntValue(int32(spec.FourCC))},
		{Type: va.SurfaceAttribMemoryType, Flags: va.SurfaceAttribGettable | va.SurfaceAttribSettable, Value: va.IntValue(int32(spec.MemType))},
		{Type: va.SurfaceAttribUsageHint, Flags: va.SurfaceAttribGettable | va.SurfaceAttribSettable, Value: va.IntValue(int32(spec.UsageHint))},
	}
	if spec.External != nil {
		out = append(out, va.SurfaceAttrib{
			Type:  va.SurfaceAttribExternalBufferDescriptor,
			Flags: va.SurfaceAttribSettable,
			Value: va.PointerValue{Ptr: spec.External},
		})
	}
	return out
}

func containsFourCC(list []uint32, f uint32) bool {
	for _, v := range list {
		if v == f {
			return true
		}
	}
	return false
}

// ImageFormats returns the client-visible image formats.
func (n *Negotiator) ImageFormats() []va.ImageFormat {
	return append([]va.ImageFormat(nil), n.caps.ImageFormats...)
}

// ImageFormat looks a fourcc up in the image format list.
func (n *Negotiator) ImageFormat(fourcc uint32) (va.ImageFormat, bool) {
	for _, f := range n.caps.ImageFormats {
		if f.FourCC == fourcc {
			return f, true
		}
	}
	return va.ImageFormat{}, false
}

// SubpictureFormats returns the subpicture formats with their flags.
func (n *Negotiator) SubpictureFormats() ([]va.ImageFormat, []uint32) {
	flags := make([]uint32, len(n.caps.SubpictureFormats))
	copy(flags, n.caps.SubpictureFlags)
	return append([]va.ImageFormat(nil), n.caps.SubpictureFormats...), flags
}

// SubpictureFlags returns the flags supported for fourcc, or false if the
// fourcc is not a subpicture format.
func (n *Negotiator) SubpictureFlags(fourcc uint32) (uint32, bool) {
	for i, f := range n.caps.SubpictureFormats {
		if f.FourCC == fourcc {
			if i < len(n.caps.SubpictureFlags) {
				return n.caps.SubpictureFlags[i], true
			}
			return 0, true
		}
	}
	return 0, false
}

// DisplayAttributes returns the display attributes sorted by type.
func (n *Negotiator) DisplayAttributes() []va.DisplayAttribute {
	out := append([]va.DisplayAttribute(nil), n.caps.DisplayAttributes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
