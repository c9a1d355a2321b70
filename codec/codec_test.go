package codec

import (
	"testing"

	"github.com/matryer/is"
)

func TestShapeVorbis(t *testing.T) {
	is := is.New(t)
	h0 := make([]byte, 30)
	h1 := make([]byte, 10)
	h2 := make([]byte, 20)
	extradata := append([]byte{byte(len(h0))}, byte(len(h1)))
	extradata = append(extradata, h0...)
	extradata = append(extradata, h1...)
	extradata = append(extradata, h2...)

	res, err := Shape(Stream{CodecID: "vorbis", Type: Audio, Extradata: extradata}, nil)
	is.NoErr(err)
	is.Equal(res.CodecID, "A_VORBIS")
	is.Equal(res.CodecPrivate[0], byte(0x02))
	is.Equal(len(res.CodecPrivate), 1+len(h0)+len(h1)+len(h2)+2) // tag + 2 xiph-laced lengths + 3 headers
}

func TestShapeFLACTooShort(t *testing.T) {
	is := is.New(t)
	_, err := Shape(Stream{CodecID: "flac", Type: Audio, Extradata: make([]byte, 10)}, nil)
	is.Equal(err, ErrShortFLACStreaminfo)
}

func TestShapeFLACOK(t *testing.T) {
	is := is.New(t)
	extradata := make([]byte, 34)
	res, err := Shape(Stream{CodecID: "flac", Type: Audio, Extradata: extradata}, nil)
	is.NoErr(err)
	is.Equal(res.CodecID, "A_FLAC")
	is.Equal(len(res.CodecPrivate), 34)
}

func TestShapeUnknownVideoUsesTagTable(t *testing.T) {
	is := is.New(t)
	res, err := Shape(Stream{CodecID: "rawvideo", Type: Video, Width: 320, Height: 240}, []string{"BMP", "WAV"})
	is.NoErr(err)
	is.Equal(res.CodecID, "V_MS/VFW/FOURCC")
	is.True(len(res.CodecPrivate) == 40) // BITMAPINFOHEADER is a fixed 40 bytes
}

func TestShapeUnsupportedAudioErrors(t *testing.T) {
	is := is.New(t)
	_, err := Shape(Stream{CodecID: "nonexistent", Type: Audio}, []string{"WAV"})
	is.True(err != nil)
}

func TestShapeVideoRejectedWhenBMPTableExcluded(t *testing.T) {
	is := is.New(t)
	_, err := Shape(Stream{CodecID: "rawvideo", Type: Video, Width: 320, Height: 240}, []string{"WAV"})
	is.True(err != nil) // BMP not in the active profile's tag tables
}
