package mux

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mkvmux/mkvmux/ebml"
)

// ErrSeekHeadFull is returned by SeekHead.AddEntry once a reserved-mode
// seek-head's capacity has been exhausted.
var ErrSeekHeadFull = errors.New("mux: seek-head capacity exceeded")

// seekHeadEntryBytes is the worst-case byte footprint of one Seek child:
// SeekID (id 2 + size 1 + 4-byte payload) + SeekPosition (id 2 + size 1 +
// up to 8-byte payload), plus the enclosing Seek master's own id/size.
const seekHeadEntryBytes = 28

// seekHeadFixedBytes is the SeekHead master's own 4-byte id and 8-byte
// reserved size, plus one further byte.
const seekHeadFixedBytes = 13

// seekHeadEntry is one (element id, segment-relative offset) pair.
type seekHeadEntry struct {
	id     uint32
	offset int64
}

// SeekHead builds either the reserved, front-of-segment main index or the
// appended, end-of-file cluster index, per §4.B.
type SeekHead struct {
	w            *ebml.Writer
	segmentStart int64
	entries      []seekHeadEntry

	reserved    bool
	capacity    int
	reservedPos int64 // absolute offset the Void reservation starts at
	reservedLen int
}

// NewReservedSeekHead reserves capacity*28+13 bytes at the writer's current
// position for a seek-head to be finalized later, in place, during the
// trailer phase.
func NewReservedSeekHead(w *ebml.Writer, segmentStart int64, capacity int) (*SeekHead, error) {
	pos, err := w.Tell()
	if err != nil {
		return nil, err
	}
	length := seekHeadEntryBytes*capacity + seekHeadFixedBytes
	if err := w.PutVoid(length); err != nil {
		return nil, errors.Wrap(err, "mux: reserve seek-head")
	}
	return &SeekHead{
		w: w, segmentStart: segmentStart, reserved: true,
		capacity: capacity, reservedPos: pos, reservedLen: length,
	}, nil
}

// NewAppendedSeekHead builds a seek-head with no capacity limit, to be
// written in-line wherever Finalize happens to be called.
func NewAppendedSeekHead(w *ebml.Writer, segmentStart int64) *SeekHead {
	return &SeekHead{w: w, segmentStart: segmentStart}
}

// AddEntry records id as located at absoluteOffset, for later indexing.
func (s *SeekHead) AddEntry(id uint32, absoluteOffset int64) error {
	if s.reserved && len(s.entries) >= s.capacity {
		return ErrSeekHeadFull
	}
	s.entries = append(s.entries, seekHeadEntry{id: id, offset: absoluteOffset - s.segmentStart})
	return nil
}

// Finalize writes the SeekHead master and, in reserved mode, pads any
// leftover reservation with Void and restores the writer's position. In
// reserved mode it returns the segment-relative offset the seek-head was
// written at (nothing needs to index the main seek-head into itself); in
// appended mode it returns the absolute offset, for the caller to index
// into the main seek-head.
func (s *SeekHead) Finalize() (int64, error) {
	if s.reserved {
		end, err := s.w.Tell()
		if err != nil {
			return 0, err
		}
		if err := s.seekTo(s.reservedPos); err != nil {
			return 0, err
		}
		written, err := s.writeSeekHead()
		if err != nil {
			return 0, err
		}
		pad := s.reservedLen - written
		if pad > 0 {
			if err := s.w.PutVoid(pad); err != nil {
				return 0, errors.Wrap(err, "mux: pad seek-head reservation")
			}
		} else if pad < 0 {
			return 0, errors.Errorf("mux: seek-head grew beyond its %d-byte reservation by %d bytes", s.reservedLen, -pad)
		}
		if err := s.seekTo(end); err != nil {
			return 0, err
		}
		return s.reservedPos - s.segmentStart, nil
	}

	pos, err := s.w.Tell()
	if err != nil {
		return 0, err
	}
	if _, err := s.writeSeekHead(); err != nil {
		return 0, err
	}
	return pos, nil
}

func (s *SeekHead) seekTo(abs int64) error {
	_, err := s.seeker().Seek(abs, io.SeekStart)
	if err != nil {
		return errors.Wrap(err, "mux: seek-head reposition")
	}
	return nil
}

// seeker exposes the writer's underlying Sink for the absolute seeks
// Finalize needs; ebml.Writer keeps its sink in an unexported field, so the
// seek-head reaches it through the writer's Sink accessor.
func (s *SeekHead) seeker() ebml.Sink {
	return s.w.Sink()
}

// writeSeekHead emits the SeekHead master and returns the number of bytes
// written.
func (s *SeekHead) writeSeekHead() (int, error) {
	start, err := s.w.Tell()
	if err != nil {
		return 0, err
	}
	r, err := s.w.OpenMaster(idSeekHead)
	if err != nil {
		return 0, err
	}
	for _, e := range s.entries {
		rs, err := s.w.OpenMaster(idSeek)
		if err != nil {
			return 0, err
		}
		var idBuf [4]byte
		binary.BigEndian.PutUint32(idBuf[:], e.id)
		idBuf4 := idBuf[4-ebml.IDSize(e.id):]
		if err := s.w.PutBinary(idSeekID, idBuf4); err != nil {
			return 0, err
		}
		if err := s.w.PutUint(idSeekPosition, uint64(e.offset)); err != nil {
			return 0, err
		}
		if err := s.w.CloseMaster(rs); err != nil {
			return 0, err
		}
	}
	if err := s.w.CloseMaster(r); err != nil {
		return 0, err
	}
	end, err := s.w.Tell()
	if err != nil {
		return 0, err
	}
	return int(end - start), nil
}
