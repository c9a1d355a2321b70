// Package codectag provides the lookup tables and binary structures needed
// to fall back a non-native codec to the legacy Video-for-Windows /
// Audio-Compression-Manager wrapping Matroska uses for codecs without a
// native CodecID: a FourCC-to-BITMAPINFOHEADER table for video, and a
// two-byte WAV format tag table for audio.
package codectag

import "encoding/binary"

// BMP maps a codec identifier to the four-character-code FFmpeg-style
// codec ids use to fill BITMAPINFOHEADER.biCompression when the stream
// itself did not supply one.
var BMP = map[string]uint32{
	"mpeg4":     fourCC("FMP4"),
	"msmpeg4v3": fourCC("DIV3"),
	"mjpeg":     fourCC("MJPG"),
	"wmv2":      fourCC("WMV2"),
	"h263":      fourCC("H263"),
	"rawvideo":  fourCC("DIB "),
}

// WAV maps a codec identifier to the two-byte wFormatTag ACM uses to
// identify the compression algorithm carried in WAVEFORMATEX.
var WAV = map[string]uint16{
	"mp2":       0x0050,
	"mp3":       0x0055,
	"ac3":       0x2000,
	"pcm_s16le": 0x0001,
	"pcm_u8":    0x0001,
	"wmav2":     0x0161,
	"adpcm_ms":  0x0002,
}

func fourCC(s string) uint32 {
	return binary.LittleEndian.Uint32([]byte(s))
}

// BitmapInfoHeader is the 40-byte legacy Windows video format descriptor
// Matroska's V_MS/VFW/FOURCC CodecPrivate wraps.
type BitmapInfoHeader struct {
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32 // FourCC
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// Marshal encodes the header in its fixed 40-byte little-endian wire form.
func (h BitmapInfoHeader) Marshal() []byte {
	buf := make([]byte, 40)
	binary.LittleEndian.PutUint32(buf[0:4], 40)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Width))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Height))
	binary.LittleEndian.PutUint16(buf[12:14], h.Planes)
	binary.LittleEndian.PutUint16(buf[14:16], h.BitCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.Compression)
	binary.LittleEndian.PutUint32(buf[20:24], h.SizeImage)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.XPelsPerMeter))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.YPelsPerMeter))
	binary.LittleEndian.PutUint32(buf[32:36], h.ClrUsed)
	binary.LittleEndian.PutUint32(buf[36:40], h.ClrImportant)
	return buf
}

// WaveFormatEx is the legacy Windows audio format descriptor Matroska's
// A_MS/ACM CodecPrivate wraps.
type WaveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Extra          []byte
}

// Marshal encodes the header in its 18-byte-plus-extra little-endian wire
// form (cbSize followed by Extra, per the WAVEFORMATEX convention).
func (h WaveFormatEx) Marshal() []byte {
	buf := make([]byte, 18+len(h.Extra))
	binary.LittleEndian.PutUint16(buf[0:2], h.FormatTag)
	binary.LittleEndian.PutUint16(buf[2:4], h.Channels)
	binary.LittleEndian.PutUint32(buf[4:8], h.SamplesPerSec)
	binary.LittleEndian.PutUint32(buf[8:12], h.AvgBytesPerSec)
	binary.LittleEndian.PutUint16(buf[12:14], h.BlockAlign)
	binary.LittleEndian.PutUint16(buf[14:16], h.BitsPerSample)
	binary.LittleEndian.PutUint16(buf[16:18], uint16(len(h.Extra)))
	copy(buf[18:], h.Extra)
	return buf
}
