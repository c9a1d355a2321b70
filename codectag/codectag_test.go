package codectag

import (
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
)

func TestBitmapInfoHeaderMarshal(t *testing.T) {
	is := is.New(t)
	h := BitmapInfoHeader{Width: 320, Height: 240, Planes: 1, BitCount: 24, Compression: BMP["mjpeg"]}
	buf := h.Marshal()
	is.Equal(len(buf), 40)
	is.Equal(binary.LittleEndian.Uint32(buf[0:4]), uint32(40))
	is.Equal(int32(binary.LittleEndian.Uint32(buf[4:8])), int32(320))
	is.Equal(binary.LittleEndian.Uint32(buf[16:20]), BMP["mjpeg"])
}

func TestWaveFormatExMarshalWithExtra(t *testing.T) {
	is := is.New(t)
	h := WaveFormatEx{FormatTag: WAV["mp3"], Channels: 2, SamplesPerSec: 44100, BlockAlign: 1, BitsPerSample: 16, Extra: []byte{0xAA, 0xBB}}
	buf := h.Marshal()
	is.Equal(len(buf), 20)
	is.Equal(binary.LittleEndian.Uint16(buf[0:2]), WAV["mp3"])
	is.Equal(binary.LittleEndian.Uint16(buf[16:18]), uint16(2)) // cbSize
	is.Equal(buf[18:], []byte{0xAA, 0xBB})
}

func TestFourCCTableDistinctValues(t *testing.T) {
	is := is.New(t)
	seen := map[uint32]bool{}
	for _, v := range BMP {
		is.True(!seen[v]) // no two BMP entries should collide on FourCC
		seen[v] = true
	}
}
