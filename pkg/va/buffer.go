package va

import "fmt"

// BufferType tags the content of a buffer. The engine dispatches on this
// tag only; payload bytes are never interpreted.
type BufferType int32

// Buffer types.
const (
	PictureParameterBufferType            BufferType = 0
	IQMatrixBufferType                    BufferType = 1
	BitPlaneBufferType                    BufferType = 2
	SliceGroupMapBufferType               BufferType = 3
	SliceParameterBufferType              BufferType = 4
	SliceDataBufferType                   BufferType = 5
	MacroblockParameterBufferType         BufferType = 6
	ResidualDataBufferType                BufferType = 7
	DeblockingParameterBufferType         BufferType = 8
	ImageBufferType                       BufferType = 9
	ProtectedSliceDataBufferType          BufferType = 10
	QMatrixBufferType                     BufferType = 11
	HuffmanTableBufferType                BufferType = 12
	ProbabilityBufferType                 BufferType = 13
	EncCodedBufferType                    BufferType = 21
	EncSequenceParameterBufferType        BufferType = 22
	EncPictureParameterBufferType         BufferType = 23
	EncSliceParameterBufferType           BufferType = 24
	EncPackedHeaderParameterBufferType    BufferType = 25
	EncPackedHeaderDataBufferType         BufferType = 26
	EncMiscParameterBufferType            BufferType = 27
	EncMacroblockParameterBufferType      BufferType = 28
	EncMacroblockMapBufferType            BufferType = 29
	EncQPBufferType                       BufferType = 30
	ProcPipelineParameterBufferType       BufferType = 41
	ProcFilterParameterBufferType         BufferType = 42
	EncFEIMVBufferType                    BufferType = 43
	EncFEIMBCodeBufferType                BufferType = 44
	EncFEIDistortionBufferType            BufferType = 45
	EncFEIMBControlBufferType             BufferType = 46
	EncFEIMVPredictorBufferType           BufferType = 47
	StatsStatisticsParameterBufferType    BufferType = 48
	StatsStatisticsBufferType             BufferType = 49
	StatsStatisticsBottomFieldBufferType  BufferType = 50
	StatsMVBufferType                     BufferType = 51
	StatsMVPredictorBufferType            BufferType = 52
	EncMacroblockDisableSkipMapBufferType BufferType = 53
	EncFEICTBCmdBufferType                BufferType = 54
	EncFEICURecordBufferType              BufferType = 55
	DecodeStreamoutBufferType             BufferType = 56
	SubsetsParameterBufferType            BufferType = 57
	ContextParameterUpdateBufferType      BufferType = 58
	ProtectedSessionExecuteBufferType     BufferType = 59
	EncryptionParameterBufferType         BufferType = 60
)

// BufferClass groups buffer types by the pipeline that consumes them.
type BufferClass int

const (
	BufferClassUnknown BufferClass = iota
	BufferClassDecode
	BufferClassEncode
	BufferClassProc
	BufferClassStats
	BufferClassCommon
)

// Class returns the pipeline class of the buffer type.
func (t BufferType) Class() BufferClass {
	switch {
	case t >= PictureParameterBufferType && t <= ProbabilityBufferType && t != ImageBufferType:
		return BufferClassDecode
	case t == DecodeStreamoutBufferType || t == SubsetsParameterBufferType:
		return BufferClassDecode
	case t >= EncCodedBufferType && t <= EncQPBufferType:
		return BufferClassEncode
	case t >= EncFEIMVBufferType && t <= EncFEIMVPredictorBufferType:
		return BufferClassEncode
	case t == EncMacroblockDisableSkipMapBufferType || t == EncFEICTBCmdBufferType || t == EncFEICURecordBufferType:
		return BufferClassEncode
	case t == ProcPipelineParameterBufferType || t == ProcFilterParameterBufferType:
		return BufferClassProc
	case t >= StatsStatisticsParameterBufferType && t <= StatsMVPredictorBufferType:
		return BufferClassStats
	case t == ImageBufferType || t == ContextParameterUpdateBufferType ||
		t == ProtectedSessionExecuteBufferType || t == EncryptionParameterBufferType:
		return BufferClassCommon
	}
	return BufferClassUnknown
}

// Standalone reports whether buffers of this type outlive the frame that
// consumed them. Output buffers stay alive for the client to map.
func (t BufferType) Standalone() bool {
	switch t {
	case EncCodedBufferType, ImageBufferType, DecodeStreamoutBufferType,
		StatsStatisticsBufferType, StatsStatisticsBottomFieldBufferType, StatsMVBufferType,
		EncFEIMVBufferType, EncFEIMBCodeBufferType, EncFEIDistortionBufferType, EncFEICURecordBufferType:
		return true
	}
	return false
}

// TwoDimensional reports whether the type can be created with CreateBuffer2.
func (t BufferType) TwoDimensional() bool {
	switch t {
	case EncMacroblockMapBufferType, EncQPBufferType, EncMacroblockDisableSkipMapBufferType:
		return true
	}
	return false
}

func (t BufferType) String() string {
	if name, ok := bufferTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("VABufferType(%d)", int32(t))
}

var bufferTypeNames = map[BufferType]string{
	PictureParameterBufferType:         "VAPictureParameterBufferType",
	IQMatrixBufferType:                 "VAIQMatrixBufferType",
	BitPlaneBufferType:                 "VABitPlaneBufferType",
	SliceGroupMapBufferType:            "VASliceGroupMapBufferType",
	SliceParameterBufferType:           "VASliceParameterBufferType",
	SliceDataBufferType:                "VASliceDataBufferType",
	MacroblockParameterBufferType:      "VAMacroblockParameterBufferType",
	ResidualDataBufferType:             "VAResidualDataBufferType",
	DeblockingParameterBufferType:      "VADeblockingParameterBufferType",
	ImageBufferType:                    "VAImageBufferType",
	ProtectedSliceDataBufferType:       "VAProtectedSliceDataBufferType",
	QMatrixBufferType:                  "VAQMatrixBufferType",
	HuffmanTableBufferType:             "VAHuffmanTableBufferType",
	ProbabilityBufferType:              "VAProbabilityBufferType",
	EncCodedBufferType:                 "VAEncCodedBufferType",
	EncSequenceParameterBufferType:     "VAEncSequenceParameterBufferType",
	EncPictureParameterBufferType:      "VAEncPictureParameterBufferType",
	EncSliceParameterBufferType:        "VAEncSliceParameterBufferType",
	EncPackedHeaderParameterBufferType: "VAEncPackedHeaderParameterBufferType",
	EncPackedHeaderDataBufferType:      "VAEncPackedHeaderDataBufferType",
	EncMiscParameterBufferType:         "VAEncMiscParameterBufferType",
	EncMacroblockParameterBufferType:   "VAEncMacroblockParameterBufferType",
	EncMacroblockMapBufferType:         "VAEncMacroblockMapBufferType",
	EncQPBufferType:                    "VAEncQPBufferType",
	ProcPipelineParameterBufferType:    "VAProcPipelineParameterBufferType",
	ProcFilterParameterBufferType:      "VAProcFilterParameterBufferType",
	DecodeStreamoutBufferType:          "VADecodeStreamoutBufferType",
}

// Coded buffer segment status bits.
const (
	CodedBufStatusPictureAveQPMask   uint32 = 0xff
	CodedBufStatusLargeSliceMask     uint32 = 0x100
	CodedBufStatusSliceOverflowMask  uint32 = 0x200
	CodedBufStatusBitrateOverflow    uint32 = 0x400
	CodedBufStatusBitrateHigh        uint32 = 0x800
	CodedBufStatusFrameSizeOverflow  uint32 = 0x1000
	CodedBufStatusBadBitstream       uint32 = 0x8000
	CodedBufStatusAirMBOverThreshold uint32 = 0xff0000
	CodedBufStatusNumberPassesMask   uint32 = 0xf000000
	CodedBufStatusSingleNALU         uint32 = 0x10000000
)

// CodedBufferSegment is one output byte range of an encoded frame.
// Segments form a singly linked list terminated by a nil Next.
type CodedBufferSegment struct {
	Size      uint32
	BitOffset uint32
	Status    uint32
	Buf       []byte
	Next      *CodedBufferSegment
}

// Bytes concatenates the payload of the segment list starting at s.
func (s *CodedBufferSegment) Bytes() []byte {
	var total int
	for seg := s; seg != nil; seg = seg.Next {
		total += int(seg.Size)
	}
	out := make([]byte, 0, total)
	for seg := s; seg != nil; seg = seg.Next {
		out = append(out, seg.Buf[:seg.Size]...)
	}
	return out
}

// BufferInfo describes an acquired external buffer handle.
type BufferInfo struct {
	Handle  uintptr
	Type    BufferType
	MemType uint32
	MemSize int
}
