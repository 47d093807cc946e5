package swaccel

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/user/vacore/pkg/va"
)

// SequenceParams is the payload of an EncSequenceParameterBuffer. A frame
// that carries one starts with SPS and PPS.
type SequenceParams struct {
	// LevelIDC is level_idc of the SPS; zero picks one from the size.
	LevelIDC uint32
}

// PictureParams is the payload of an EncPictureParameterBuffer. Every
// picture is coded as an IDR picture.
type PictureParams struct {
	IDRPicID uint32
}

// SequenceParamsSize and PictureParamsSize are the payload sizes the
// encoder expects in CreateBuffer.
var (
	SequenceParamsSize = uint32(binary.Size(SequenceParams{}))
	PictureParamsSize  = uint32(binary.Size(PictureParams{}))
)

// Marshal encodes p in the buffer layout.
func (p SequenceParams) Marshal() []byte { return marshal(p) }

// Marshal encodes p in the buffer layout.
func (p PictureParams) Marshal() []byte { return marshal(p) }

func marshal(v any) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func unmarshal(data []byte, v any) error {
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, v); err != nil {
		return fmt.Errorf("parameter buffer of %d bytes: %w", len(data), va.ErrInvalidParameter)
	}
	return nil
}
