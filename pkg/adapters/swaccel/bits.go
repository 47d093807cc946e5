package swaccel

import "errors"

// errShortRead is returned by bitReader when the payload ends early.
var errShortRead = errors.New("swaccel: bitstream ended early")

// bitWriter writes an RBSP most significant bit first.
type bitWriter struct {
	buf   []byte
	cur   byte
	nbits uint
}

func (w *bitWriter) u(n uint, v uint32) {
	for i := int(n) - 1; i >= 0; i-- {
		w.cur = w.cur<<1 | byte(v>>uint(i)&1)
		w.nbits++
		if w.nbits == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur, w.nbits = 0, 0
		}
	}
}

func (w *bitWriter) flag(b bool) {
	if b {
		w.u(1, 1)
	} else {
		w.u(1, 0)
	}
}

// ue writes an unsigned Exp-Golomb code.
func (w *bitWriter) ue(v uint32) {
	x := uint64(v) + 1
	n := uint(0)
	for t := x; t > 1; t >>= 1 {
		n++
	}
	w.u(n, 0)
	for i := int(n); i >= 0; i-- {
		w.u(1, uint32(x>>uint(i)&1))
	}
}

// se writes a signed Exp-Golomb code.
func (w *bitWriter) se(v int32) {
	if v > 0 {
		w.ue(uint32(2*v - 1))
	} else {
		w.ue(uint32(-2 * v))
	}
}

func (w *bitWriter) aligned() bool { return w.nbits == 0 }

// alignZero pads with zero bits to the next byte boundary.
func (w *bitWriter) alignZero() {
	for w.nbits != 0 {
		w.u(1, 0)
	}
}

// bytes appends whole bytes; the writer must be aligned.
func (w *bitWriter) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// trailing writes rbsp_trailing_bits and returns the RBSP.
func (w *bitWriter) trailing() []byte {
	w.u(1, 1)
	w.alignZero()
	return w.buf
}

// bitReader reads an RBSP most significant bit first.
type bitReader struct {
	data []byte
	pos  int // in bits
}

func (r *bitReader) left() int { return len(r.data)*8 - r.pos }

func (r *bitReader) u(n int) (uint32, error) {
	if r.left() < n {
		return 0, errShortRead
	}
	var v uint32
	for i := 0; i < n; i++ {
		b := r.data[r.pos>>3] >> (7 - uint(r.pos&7)) & 1
		v = v<<1 | uint32(b)
		r.pos++
	}
	return v, nil
}

func (r *bitReader) flag() (bool, error) {
	v, err := r.u(1)
	return v == 1, err
}

func (r *bitReader) ue() (uint32, error) {
	zeros := 0
	for {
		b, err := r.u(1)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		zeros++
		if zeros > 31 {
			return 0, errors.New("swaccel: exp-golomb code too long")
		}
	}
	rest, err := r.u(zeros)
	if err != nil {
		return 0, err
	}
	return (1<<uint(zeros) - 1) + rest, nil
}

func (r *bitReader) se() (int32, error) {
	v, err := r.ue()
	if err != nil {
		return 0, err
	}
	if v&1 == 1 {
		return int32(v/2 + 1), nil
	}
	return -int32(v / 2), nil
}

func (r *bitReader) alignZero() error {
	for r.pos&7 != 0 {
		b, err := r.u(1)
		if err != nil {
			return err
		}
		if b != 0 {
			return errors.New("swaccel: non-zero alignment bit")
		}
	}
	return nil
}

// bytes returns the next n whole bytes; the reader must be aligned.
func (r *bitReader) bytes(n int) ([]byte, error) {
	if r.left() < n*8 {
		return nil, errShortRead
	}
	start := r.pos >> 3
	r.pos += n * 8
	return r.data[start : start+n], nil
}

// moreData reports whether anything but rbsp_trailing_bits remains.
func (r *bitReader) moreData() bool {
	last := len(r.data) - 1
	for last >= 0 && r.data[last] == 0 {
		last--
	}
	if last < 0 {
		return false
	}
	stop := last*8 + 7
	for b := r.data[last]; b&1 == 0; b >>= 1 {
		stop--
	}
	return r.pos < stop
}

// escape inserts emulation prevention bytes into an RBSP.
func escape(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/64+4)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// unescape removes emulation prevention bytes from a NAL payload.
func unescape(nal []byte) []byte {
	out := make([]byte, 0, len(nal))
	zeros := 0
	for _, b := range nal {
		if zeros >= 2 && b == 3 {
			zeros = 0
			continue
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

var startCode = []byte{0, 0, 0, 1}

// nalUnit builds an Annex B NAL unit with a four byte start code.
func nalUnit(refIdc, typ byte, rbsp []byte) []byte {
	payload := escape(rbsp)
	out := make([]byte, 0, len(startCode)+1+len(payload))
	out = append(out, startCode...)
	out = append(out, refIdc<<5|typ)
	return append(out, payload...)
}

// splitAnnexB splits a byte stream at start codes.
func splitAnnexB(data []byte) [][]byte {
	var nalus [][]byte
	start := -1
	for i := 0; i+2 < len(data); {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			if start >= 0 {
				end := i
				for end > start && data[end-1] == 0 {
					end--
				}
				nalus = append(nalus, data[start:end])
			}
			i += 3
			start = i
			continue
		}
		i++
	}
	if start >= 0 && start < len(data) {
		nalus = append(nalus, data[start:])
	}
	return nalus
}
