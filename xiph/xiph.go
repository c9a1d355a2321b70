// Package xiph splits the concatenated Vorbis/Theora header blob carried in
// a stream's extradata into its three constituent packets (identification,
// comment, and setup/codec-setup headers), the way the encoder that
// produced the extradata packed them.
package xiph

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrCorruptHeaders is returned when extradata is too short or internally
// inconsistent for any of the three packing conventions this package
// understands.
var ErrCorruptHeaders = errors.New("xiph: corrupt or truncated header extradata")

// Split returns the three header packets packed into extradata. firstLen is
// a hint for the "explicit 16-bit length prefix" packing (30 for Vorbis, 42
// for Theora identification headers) used by some encoders; it is ignored
// by the other two packing conventions this function also recognizes.
func Split(extradata []byte, firstLen int) (headers [3][]byte, err error) {
	switch {
	case len(extradata) >= 6 && int(binary.BigEndian.Uint16(extradata)) == firstLen:
		return splitExplicitLengths(extradata)
	case len(extradata) >= 3 && (extradata[0] == 0 || extradata[0] == 1):
		return splitShortLengths(extradata)
	case len(extradata) >= 1:
		return splitLacedLengths(extradata)
	default:
		return headers, ErrCorruptHeaders
	}
}

// splitExplicitLengths handles extradata packed as three 16-bit big-endian
// lengths, each immediately followed by that many bytes of header data.
func splitExplicitLengths(extradata []byte) (headers [3][]byte, err error) {
	off := 0
	for i := 0; i < 3; i++ {
		if off+2 > len(extradata) {
			return headers, ErrCorruptHeaders
		}
		n := int(binary.BigEndian.Uint16(extradata[off:]))
		off += 2
		if off+n > len(extradata) {
			return headers, ErrCorruptHeaders
		}
		headers[i] = extradata[off : off+n]
		off += n
	}
	return headers, nil
}

// splitShortLengths handles extradata starting with a single marker byte
// (0 or 1) followed by two 16-bit big-endian lengths for the first two
// headers; the third header consumes whatever bytes remain.
func splitShortLengths(extradata []byte) (headers [3][]byte, err error) {
	off := 1
	var lens [2]int
	for i := 0; i < 2; i++ {
		if off+2 > len(extradata) {
			return headers, ErrCorruptHeaders
		}
		lens[i] = int(binary.BigEndian.Uint16(extradata[off:]))
		off += 2
	}
	for i, n := range lens {
		if off+n > len(extradata) {
			return headers, ErrCorruptHeaders
		}
		headers[i] = extradata[off : off+n]
		off += n
	}
	if off > len(extradata) {
		return headers, ErrCorruptHeaders
	}
	headers[2] = extradata[off:]
	return headers, nil
}

// splitLacedLengths handles the classic Xiph/Ogg lacing convention: one
// byte naming the length of the first header, followed by Xiph-laced
// lengths for the second header, followed by the three headers
// concatenated back to back (the third header's length is implicit).
func splitLacedLengths(extradata []byte) (headers [3][]byte, err error) {
	off := 0
	n0 := int(extradata[off])
	off++

	n1, consumed, ok := readXiphLacedSize(extradata[off:])
	if !ok {
		return headers, ErrCorruptHeaders
	}
	off += consumed

	if off+n0+n1 > len(extradata) {
		return headers, ErrCorruptHeaders
	}
	headers[0] = extradata[off : off+n0]
	off += n0
	headers[1] = extradata[off : off+n1]
	off += n1
	headers[2] = extradata[off:]
	return headers, nil
}

func readXiphLacedSize(b []byte) (n int, consumed int, ok bool) {
	for consumed < len(b) {
		n += int(b[consumed])
		if b[consumed] != 0xFF {
			consumed++
			return n, consumed, true
		}
		consumed++
	}
	return 0, 0, false
}
