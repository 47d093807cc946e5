package swaccel

import (
	"errors"
	"fmt"

	"github.com/user/vacore/pkg/va"
)

// NAL unit types used by the software codec.
const (
	nalSlice    = 1
	nalIDRSlice = 5
	nalSPS      = 7
	nalPPS      = 8
)

const (
	sliceTypeI    = 7 // all slices of the picture are I slices
	mbTypeIPCM    = 25
	log2MaxFrame  = 4
	pocTypeNoLSB  = 2
	deblockingOff = 1

	// maxMBDim bounds each picture dimension in macroblocks; 4096 of them
	// cover the largest surface an image can address.
	maxMBDim = 4096
)

// sequence holds the fields of an SPS this codec reads and writes.
type sequence struct {
	profileIDC  uint8
	constraints uint8
	levelIDC    uint8
	mbWidth     int
	mbHeight    int
	cropRight   int // in luma samples
	cropBottom  int
}

func (s sequence) width() int  { return s.mbWidth*16 - s.cropRight }
func (s sequence) height() int { return s.mbHeight*16 - s.cropBottom }

// newSequence derives the SPS of a width x height stream in profile.
func newSequence(profile va.Profile, width, height int, level uint8) (sequence, error) {
	s := sequence{
		mbWidth:  (width + 15) / 16,
		mbHeight: (height + 15) / 16,
	}
	s.cropRight = s.mbWidth*16 - width
	s.cropBottom = s.mbHeight*16 - height
	switch profile {
	case va.ProfileH264ConstrainedBaseline:
		s.profileIDC, s.constraints = 66, 0xc0
	case va.ProfileH264Baseline:
		s.profileIDC = 66
	case va.ProfileH264Main:
		s.profileIDC, s.constraints = 77, 0x40
	case va.ProfileH264High:
		s.profileIDC = 100
	default:
		return sequence{}, fmt.Errorf("profile %s: %w", profile, va.ErrUnsupportedProfile)
	}
	s.levelIDC = level
	if s.levelIDC == 0 {
		s.levelIDC = levelFor(s.mbWidth * s.mbHeight)
	}
	return s, nil
}

// levelFor picks the lowest level whose MaxFS fits the frame.
func levelFor(frameMBs int) uint8 {
	switch {
	case frameMBs <= 396:
		return 21
	case frameMBs <= 1620:
		return 31
	case frameMBs <= 8192:
		return 41
	case frameMBs <= 22080:
		return 50
	default:
		return 51
	}
}

func highProfile(idc uint8) bool {
	switch idc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

func (s sequence) spsRBSP() []byte {
	var w bitWriter
	w.u(8, uint32(s.profileIDC))
	w.u(8, uint32(s.constraints))
	w.u(8, uint32(s.levelIDC))
	w.ue(0) // seq_parameter_set_id
	if highProfile(s.profileIDC) {
		w.ue(1)       // chroma_format_idc 4:2:0
		w.ue(0)       // bit_depth_luma_minus8
		w.ue(0)       // bit_depth_chroma_minus8
		w.flag(false) // qpprime_y_zero_transform_bypass_flag
		w.flag(false) // seq_scaling_matrix_present_flag
	}
	w.ue(log2MaxFrame - 4)
	w.ue(pocTypeNoLSB)
	w.ue(1)       // max_num_ref_frames
	w.flag(false) // gaps_in_frame_num_value_allowed_flag
	w.ue(uint32(s.mbWidth - 1))
	w.ue(uint32(s.mbHeight - 1))
	w.flag(true) // frame_mbs_only_flag
	w.flag(true) // direct_8x8_inference_flag
	cropping := s.cropRight != 0 || s.cropBottom != 0
	w.flag(cropping)
	if cropping {
		w.ue(0)
		w.ue(uint32(s.cropRight / 2))
		w.ue(0)
		w.ue(uint32(s.cropBottom / 2))
	}
	w.flag(false) // vui_parameters_present_flag
	return w.trailing()
}

func ppsRBSP() []byte {
	var w bitWriter
	w.ue(0)       // pic_parameter_set_id
	w.ue(0)       // seq_parameter_set_id
	w.flag(false) // entropy_coding_mode_flag: CAVLC
	w.flag(false) // bottom_field_pic_order_in_frame_present_flag
	w.ue(0)       // num_slice_groups_minus1
	w.ue(0)       // num_ref_idx_l0_default_active_minus1
	w.ue(0)       // num_ref_idx_l1_default_active_minus1
	w.flag(false) // weighted_pred_flag
	w.u(2, 0)     // weighted_bipred_idc
	w.se(0)       // pic_init_qp_minus26
	w.se(0)       // pic_init_qs_minus26
	w.se(0)       // chroma_qp_index_offset
	w.flag(true)  // deblocking_filter_control_present_flag
	w.flag(false) // constrained_intra_pred_flag
	w.flag(false) // redundant_pic_cnt_present_flag
	return w.trailing()
}

// sliceHeader writes the header of an IDR I slice.
func sliceHeader(w *bitWriter, firstMB int, idrPicID uint32) {
	w.ue(uint32(firstMB))
	w.ue(sliceTypeI)
	w.ue(0)                 // pic_parameter_set_id
	w.u(log2MaxFrame, 0)    // frame_num
	w.ue(idrPicID & 0xffff) // idr_pic_id
	w.flag(false)           // no_output_of_prior_pics_flag
	w.flag(false)           // long_term_reference_flag
	w.se(0)                 // slice_qp_delta
	w.ue(deblockingOff)     // disable_deblocking_filter_idc
}

// sliceHeaderInfo is what the decoder needs from a slice header.
type sliceHeaderInfo struct {
	firstMB   int
	sliceType uint32
	idr       bool
}

var errUnsupportedSlice = errors.New("swaccel: only I_PCM intra slices are supported")

// parseSliceHeader reads a slice header that uses the PPS of ppsRBSP.
// r is left at the start of slice_data.
func parseSliceHeader(r *bitReader, nalType byte) (sliceHeaderInfo, error) {
	var h sliceHeaderInfo
	h.idr = nalType == nalIDRSlice
	first, err := r.ue()
	if err != nil {
		return h, err
	}
	h.firstMB = int(first)
	if h.sliceType, err = r.ue(); err != nil {
		return h, err
	}
	if h.sliceType%5 != 2 {
		return h, errUnsupportedSlice
	}
	if _, err := r.ue(); err != nil { // pic_parameter_set_id
		return h, err
	}
	if _, err := r.u(log2MaxFrame); err != nil {
		return h, err
	}
	if h.idr {
		if _, err := r.ue(); err != nil {
			return h, err
		}
		if _, err := r.u(2); err != nil { // dec_ref_pic_marking of an IDR
			return h, err
		}
	} else if _, err := r.flag(); err != nil { // adaptive_ref_pic_marking_mode_flag
		return h, err
	}
	if _, err := r.se(); err != nil { // slice_qp_delta
		return h, err
	}
	idc, err := r.ue()
	if err != nil {
		return h, err
	}
	if idc != 1 {
		if _, err := r.se(); err != nil {
			return h, err
		}
		if _, err := r.se(); err != nil {
			return h, err
		}
	}
	return h, nil
}

// parseSPS reads the fields of sequence from an SPS RBSP written by
// spsRBSP or by an encoder with the same restrictions.
func parseSPS(rbsp []byte) (sequence, error) {
	r := &bitReader{data: rbsp}
	var s sequence
	read8 := func() (uint8, error) {
		v, err := r.u(8)
		return uint8(v), err
	}
	var err error
	if s.profileIDC, err = read8(); err != nil {
		return s, err
	}
	if s.constraints, err = read8(); err != nil {
		return s, err
	}
	if s.levelIDC, err = read8(); err != nil {
		return s, err
	}
	if _, err := r.ue(); err != nil {
		return s, err
	}
	if highProfile(s.profileIDC) {
		chroma, err := r.ue()
		if err != nil {
			return s, err
		}
		if chroma != 1 {
			return s, fmt.Errorf("chroma_format_idc %d: %w", chroma, va.ErrUnsupportedRTFormat)
		}
		for i := 0; i < 2; i++ {
			depth, err := r.ue()
			if err != nil {
				return s, err
			}
			if depth != 0 {
				return s, fmt.Errorf("bit depth %d: %w", depth+8, va.ErrUnsupportedRTFormat)
			}
		}
		if _, err := r.u(1); err != nil {
			return s, err
		}
		scaling, err := r.flag()
		if err != nil {
			return s, err
		}
		if scaling {
			return s, fmt.Errorf("scaling matrices: %w", va.ErrUnimplemented)
		}
	}
	log2Frame, err := r.ue()
	if err != nil {
		return s, err
	}
	if log2Frame+4 != log2MaxFrame {
		return s, fmt.Errorf("log2_max_frame_num %d: %w", log2Frame+4, va.ErrUnimplemented)
	}
	poc, err := r.ue()
	if err != nil {
		return s, err
	}
	if poc != pocTypeNoLSB {
		return s, fmt.Errorf("pic_order_cnt_type %d: %w", poc, va.ErrUnimplemented)
	}
	if _, err := r.ue(); err != nil { // max_num_ref_frames
		return s, err
	}
	if _, err := r.u(1); err != nil {
		return s, err
	}
	mbw, err := r.ue()
	if err != nil {
		return s, err
	}
	mbh, err := r.ue()
	if err != nil {
		return s, err
	}
	if mbw >= maxMBDim || mbh >= maxMBDim {
		return s, fmt.Errorf("picture of %dx%d macroblocks: %w", uint64(mbw)+1, uint64(mbh)+1, va.ErrResolutionNotSupported)
	}
	s.mbWidth, s.mbHeight = int(mbw)+1, int(mbh)+1
	frameOnly, err := r.flag()
	if err != nil {
		return s, err
	}
	if !frameOnly {
		return s, fmt.Errorf("field coding: %w", va.ErrUnimplemented)
	}
	if _, err := r.u(1); err != nil {
		return s, err
	}
	crop, err := r.flag()
	if err != nil {
		return s, err
	}
	if crop {
		var off [4]uint32
		for i := range off {
			if off[i], err = r.ue(); err != nil {
				return s, err
			}
		}
		right := (uint64(off[0]) + uint64(off[1])) * 2
		bottom := (uint64(off[2]) + uint64(off[3])) * 2
		if right >= uint64(s.mbWidth)*16 || bottom >= uint64(s.mbHeight)*16 {
			return s, fmt.Errorf("cropping %d,%d of a %dx%d frame: %w",
				right, bottom, s.mbWidth*16, s.mbHeight*16, va.ErrInvalidParameter)
		}
		s.cropRight, s.cropBottom = int(right), int(bottom)
	}
	return s, nil
}
