package ebml

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Sink is the byte-stream collaborator a Writer emits into. sink.File (an
// *os.File with Tell added) and sink.Buffer both satisfy it; the writer
// never reads back what it wrote,
// it only seeks to patch a previously reserved region.
type Sink interface {
	io.Writer
	// Tell reports the current write offset.
	Tell() (int64, error)
	// Seek repositions the cursor, following io.Seeker semantics.
	Seek(offset int64, whence int) (int64, error)
}

// Reservation is the ticket returned by OpenMaster and consumed by
// CloseMaster.
type Reservation struct {
	// pos is the sink offset immediately after the reserved size field.
	pos int64
}

// Writer emits EBML primitives to a Sink.
type Writer struct {
	s Sink
}

// NewWriter wraps a Sink in a Writer.
func NewWriter(s Sink) *Writer {
	return &Writer{s: s}
}

// Tell exposes the underlying sink's current offset.
func (w *Writer) Tell() (int64, error) {
	return w.s.Tell()
}

// Sink exposes the underlying byte sink, for callers (such as mux.SeekHead)
// that need to reposition the cursor directly rather than through a
// Reservation.
func (w *Writer) Sink() Sink {
	return w.s
}

func (w *Writer) write(p []byte) error {
	if _, err := w.s.Write(p); err != nil {
		return errors.Wrap(err, "ebml: write")
	}
	return nil
}

// PutID emits id using its canonical IDSize(id) byte width.
func (w *Writer) PutID(id uint32) error {
	n := IDSize(id)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	return w.write(buf[4-n:])
}

// PutSize emits the VINT encoding of size in max(minBytes, SizeBytes(size))
// bytes. If size is at or beyond the largest value a VINT can hold without
// colliding with the unknown-size sentinel, a one-byte unknown-size marker
// is written instead and minBytes is ignored.
func (w *Writer) PutSize(size uint64, minBytes int) error {
	if size >= unknownSize {
		return w.PutUnknownSize(1)
	}
	n := SizeBytes(size)
	if minBytes > n {
		n = minBytes
	}
	return w.putSizeField(size, n)
}

// PutUnknownSize emits the distinguished "unknown size" value in n bytes
// (n must be at least 1; the Segment uses n=8 via OpenSegment).
func (w *Writer) PutUnknownSize(n int) error {
	buf := make([]byte, n)
	buf[0] = 0xFF >> uint(n-1)
	for i := 1; i < n; i++ {
		buf[i] = 0xFF
	}
	return w.write(buf)
}

// putSizeField encodes size as a VINT in exactly n bytes: the top n-1 bits
// of the first byte are zero, followed by the marker bit, followed by the
// 7n payload bits carrying size big-endian.
func (w *Writer) putSizeField(size uint64, n int) error {
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(size)
		size >>= 8
	}
	buf[0] |= 0x80 >> uint(n-1)
	return w.write(buf)
}

// PutUint emits a child element id with an unsigned integer payload, using
// the smallest big-endian byte width (>= 1) that fits val.
func (w *Writer) PutUint(id uint32, val uint64) error {
	n := uintWidth(val)
	if err := w.PutID(id); err != nil {
		return err
	}
	if err := w.PutSize(uint64(n), 0); err != nil {
		return err
	}
	buf := make([]byte, n)
	v := val
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return w.write(buf)
}

// PutInt emits a child element id with a signed integer payload, reusing
// PutUint's width selection against the two's-complement bit pattern.
func (w *Writer) PutInt(id uint32, val int64) error {
	return w.PutUint(id, uint64(val))
}

func uintWidth(val uint64) int {
	n := 1
	for v := val >> 8; v != 0; v >>= 8 {
		n++
	}
	return n
}

// PutFloat emits a child element id with an 8-byte IEEE-754 big-endian
// float payload.
func (w *Writer) PutFloat(id uint32, val float64) error {
	if err := w.PutID(id); err != nil {
		return err
	}
	if err := w.PutSize(8, 0); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(val))
	return w.write(buf[:])
}

// PutBinary emits a child element id followed by buf verbatim.
func (w *Writer) PutBinary(id uint32, buf []byte) error {
	if err := w.PutID(id); err != nil {
		return err
	}
	if err := w.PutSize(uint64(len(buf)), 0); err != nil {
		return err
	}
	return w.write(buf)
}

// PutString emits a child element id followed by the UTF-8 bytes of str.
func (w *Writer) PutString(id uint32, str string) error {
	return w.PutBinary(id, []byte(str))
}

// WriteRaw writes p verbatim with no id or size framing, for callers (such
// as mux's block emission) that have already written their own id/size
// pair via PutID/PutSize and need to append a payload assembled from more
// than one piece.
func (w *Writer) WriteRaw(p []byte) error {
	return w.write(p)
}

const voidID = 0xEC

// PutVoid writes a Void element whose id, size field, and implicit payload
// together occupy exactly totalLen bytes. The payload region itself is
// skipped over (seeked past), not zeroed. For totalLen >= 10 the 8-byte
// size field records totalLen-9, the length of the skipped region; for
// totalLen < 10 the 1-byte size field records totalLen-1, one more than
// the totalLen-2 bytes skipped.
func (w *Writer) PutVoid(totalLen int) error {
	if totalLen < 2 {
		return errors.Errorf("ebml: void element must be at least 2 bytes, got %d", totalLen)
	}
	if err := w.PutID(voidID); err != nil {
		return err
	}
	var payload int
	if totalLen < 10 {
		if err := w.putSizeField(uint64(totalLen-1), 1); err != nil {
			return err
		}
		payload = totalLen - 2
	} else {
		if err := w.putSizeField(uint64(totalLen-9), 8); err != nil {
			return err
		}
		payload = totalLen - 9
	}
	if payload == 0 {
		return nil
	}
	if _, err := w.s.Seek(int64(payload), io.SeekCurrent); err != nil {
		return errors.Wrap(err, "ebml: seek past void payload")
	}
	return nil
}

// OpenMaster emits id followed by an 8-byte unknown-size sentinel and
// returns a Reservation pointing just past it, to be passed to CloseMaster
// once all children have been written.
func (w *Writer) OpenMaster(id uint32) (Reservation, error) {
	if err := w.PutID(id); err != nil {
		return Reservation{}, err
	}
	if err := w.PutUnknownSize(8); err != nil {
		return Reservation{}, err
	}
	pos, err := w.s.Tell()
	if err != nil {
		return Reservation{}, errors.Wrap(err, "ebml: tell after open master")
	}
	return Reservation{pos: pos}, nil
}

// CloseMaster back-patches the 8-byte size reserved by OpenMaster with the
// real payload length (current offset minus the reservation's offset).
func (w *Writer) CloseMaster(r Reservation) error {
	end, err := w.s.Tell()
	if err != nil {
		return errors.Wrap(err, "ebml: tell before close master")
	}
	size := uint64(end - r.pos)
	if _, err := w.s.Seek(r.pos-8, io.SeekStart); err != nil {
		return errors.Wrap(err, "ebml: seek to reserved size field")
	}
	if err := w.putSizeField(size, 8); err != nil {
		return err
	}
	if _, err := w.s.Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "ebml: seek back past closed master")
	}
	return nil
}

// OpenSegment is OpenMaster specialized for the top-level Segment, which is
// never back-patched: its size field keeps the unknown-size sentinel for
// the lifetime of the file, so readers rely on EOF to find its end.
func (w *Writer) OpenSegment(id uint32) (Reservation, error) {
	return w.OpenMaster(id)
}

// PutXiphLacedSize emits n using Xiph/Ogg lacing: floor(n/255) bytes of
// 0xFF followed by one byte holding n mod 255.
func (w *Writer) PutXiphLacedSize(n int) error {
	return w.write(XiphLacedSize(n))
}

// XiphLacedSize returns n's Xiph/Ogg lacing encoding without writing it
// anywhere, for callers (such as codec-private blob builders) that need the
// bytes inline rather than through a Sink.
func XiphLacedSize(n int) []byte {
	buf := make([]byte, 0, n/255+1)
	for n >= 255 {
		buf = append(buf, 0xFF)
		n -= 255
	}
	return append(buf, byte(n))
}
