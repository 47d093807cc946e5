// Package va defines the boundary types of the video-acceleration provider:
// status codes, object identifiers, profiles, entrypoints, attributes,
// buffer types, surface states and image formats.
//
// Numeric values match the VA ABI so that they can cross a C boundary
// unchanged.
package va

import (
	"errors"
	"fmt"
)

// Status is a VA result code. The zero value is success.
// Status implements error so that it can be wrapped and matched with errors.Is.
type Status uint32

// Status codes.
const (
	StatusSuccess Status = 0x00000000

	ErrOperationFailed        Status = 0x00000001
	ErrAllocationFailed       Status = 0x00000002
	ErrInvalidDisplay         Status = 0x00000003
	ErrInvalidConfig          Status = 0x00000004
	ErrInvalidContext         Status = 0x00000005
	ErrInvalidSurface         Status = 0x00000006
	ErrInvalidBuffer          Status = 0x00000007
	ErrInvalidImage           Status = 0x00000008
	ErrInvalidSubpicture      Status = 0x00000009
	ErrAttrNotSupported       Status = 0x0000000a
	ErrMaxNumExceeded         Status = 0x0000000b
	ErrUnsupportedProfile     Status = 0x0000000c
	ErrUnsupportedEntrypoint  Status = 0x0000000d
	ErrUnsupportedRTFormat    Status = 0x0000000e
	ErrUnsupportedBufferType  Status = 0x0000000f
	ErrSurfaceBusy            Status = 0x00000010
	ErrFlagNotSupported       Status = 0x00000011
	ErrInvalidParameter       Status = 0x00000012
	ErrResolutionNotSupported Status = 0x00000013
	ErrUnimplemented          Status = 0x00000014
	ErrSurfaceInDisplaying    Status = 0x00000015
	ErrInvalidImageFormat     Status = 0x00000016
	ErrDecodingError          Status = 0x00000017
	ErrEncodingError          Status = 0x00000018
	ErrInvalidValue           Status = 0x00000019
	ErrUnsupportedFilter      Status = 0x00000020
	ErrInvalidFilterChain     Status = 0x00000021
	ErrHwBusy                 Status = 0x00000022
	ErrUnsupportedMemoryType  Status = 0x00000024
	ErrNotEnoughBuffer        Status = 0x00000025
	ErrTimedout               Status = 0x00000026
	ErrUnknown                Status = 0xFFFFFFFF
)

var statusText = map[Status]string{
	StatusSuccess:             "success (no error)",
	ErrOperationFailed:        "operation failed",
	ErrAllocationFailed:       "resource allocation failed",
	ErrInvalidDisplay:         "invalid VADisplay",
	ErrInvalidConfig:          "invalid VAConfigID",
	ErrInvalidContext:         "invalid VAContextID",
	ErrInvalidSurface:         "invalid VASurfaceID",
	ErrInvalidBuffer:          "invalid VABufferID",
	ErrInvalidImage:           "invalid VAImageID",
	ErrInvalidSubpicture:      "invalid VASubpictureID",
	ErrAttrNotSupported:       "attribute not supported",
	ErrMaxNumExceeded:         "list argument exceeds maximum number",
	ErrUnsupportedProfile:     "the requested VAProfile is not supported",
	ErrUnsupportedEntrypoint:  "the requested VAEntryPoint is not supported",
	ErrUnsupportedRTFormat:    "the requested RT Format is not supported",
	ErrUnsupportedBufferType:  "the requested VABufferType is not supported",
	ErrSurfaceBusy:            "surface is in use",
	ErrFlagNotSupported:       "flag not supported",
	ErrInvalidParameter:       "invalid parameter",
	ErrResolutionNotSupported: "resolution not supported",
	ErrUnimplemented:          "the requested function is not implemented",
	ErrSurfaceInDisplaying:    "surface is in displaying (may by overlay)",
	ErrInvalidImageFormat:     "invalid VAImageFormat",
	ErrDecodingError:          "internal decoding error",
	ErrEncodingError:          "internal encoding error",
	ErrInvalidValue:           "an invalid/unsupported value was supplied",
	ErrUnsupportedFilter:      "the requested filter is not supported",
	ErrInvalidFilterChain:     "an invalid filter chain was supplied",
	ErrHwBusy:                 "HW busy now",
	ErrUnsupportedMemoryType:  "an unsupported memory type was supplied",
	ErrNotEnoughBuffer:        "allocated memory size is not enough for input or output",
	ErrTimedout:               "deadline is exceeded",
	ErrUnknown:                "unknown libva error",
}

// Error implements error.
func (s Status) Error() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return fmt.Sprintf("unknown libva error (%#x)", uint32(s))
}

// String returns the status as a hex code with its description.
func (s Status) String() string {
	return fmt.Sprintf("%#x (%s)", uint32(s), s.Error())
}

// Class groups statuses by how a caller is expected to react.
type Class int

const (
	ClassNone Class = iota
	ClassInvalidHandle
	ClassCapability
	ClassResource
	ClassContention
	ClassExecution
	ClassTiming
	ClassFatal
)

// Class reports the taxonomy class of the status.
func (s Status) Class() Class {
	switch s {
	case StatusSuccess:
		return ClassNone
	case ErrInvalidDisplay, ErrInvalidConfig, ErrInvalidContext, ErrInvalidSurface,
		ErrInvalidBuffer, ErrInvalidImage, ErrInvalidSubpicture:
		return ClassInvalidHandle
	case ErrUnsupportedProfile, ErrUnsupportedEntrypoint, ErrUnsupportedRTFormat,
		ErrUnsupportedBufferType, ErrUnsupportedFilter, ErrAttrNotSupported,
		ErrFlagNotSupported, ErrResolutionNotSupported, ErrUnsupportedMemoryType,
		ErrInvalidImageFormat, ErrInvalidValue, ErrInvalidParameter, ErrUnimplemented,
		ErrInvalidFilterChain:
		return ClassCapability
	case ErrAllocationFailed, ErrMaxNumExceeded, ErrNotEnoughBuffer:
		return ClassResource
	case ErrSurfaceBusy, ErrHwBusy, ErrSurfaceInDisplaying:
		return ClassContention
	case ErrDecodingError, ErrEncodingError:
		return ClassExecution
	case ErrTimedout:
		return ClassTiming
	default:
		return ClassFatal
	}
}

// Retryable reports whether the caller may retry after releasing resources,
// synchronizing, or waiting longer.
func (s Status) Retryable() bool {
	switch s.Class() {
	case ClassResource, ClassContention, ClassTiming:
		return true
	}
	return false
}

// StatusOf extracts the status code carried by err.
// A nil error is StatusSuccess; an error with no Status in its chain is ErrUnknown.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return ErrUnknown
}
