package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkvmux/mkvmux/codec"
	"github.com/mkvmux/mkvmux/sink"
)

// Byte-exact assertions on the EBML header and Segment framing, kept
// separate from the structural mux tests in segment_test.go since these pin down raw
// wire bytes rather than decoded field values.
func TestMuxerEBMLHeaderIsByteExact(t *testing.T) {
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	streams := []codec.Stream{{CodecID: "h264", Type: codec.Video, Width: 320, Height: 240, BitExact: true}}
	require.NoError(t, m.WriteHeader(streams))
	require.NoError(t, m.WritePacket(Packet{StreamIndex: 0, PTS: 0, Duration: 40, Flags: FlagKeyFrame, Data: []byte{1}}))
	require.NoError(t, m.WriteTrailer())

	out := buf.Bytes()
	require.True(t, len(out) > 4)

	assert.Equal(t, []byte{0x1A, 0x45, 0xDF, 0xA3}, out[0:4])

	dec := newTestDecoder(out)
	header := dec.mustMaster(idEBML)
	assert.Equal(t, uint64(1), dec.uintField(header, idEBMLVersion))
	assert.Equal(t, uint64(ebmlMaxIDLength), dec.uintField(header, idEBMLMaxIDLength))
	assert.Equal(t, uint64(ebmlMaxSizeLength), dec.uintField(header, idEBMLMaxSizeLength))

	// Segment size is never backpatched to a definite length; it stays the
	// 8-byte unknown-size sentinel for the life of the file.
	headerSizeWidth := vintWidth(out[4])
	segIDOff := 4 + headerSizeWidth + len(header)
	segSizeOff := segIDOff + 4
	assert.Equal(t, 8, vintWidth(out[segSizeOff]))
	assert.Equal(t, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, out[segSizeOff:segSizeOff+8])
}
