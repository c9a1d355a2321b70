// Package codec dispatches per-stream codec identity to the Matroska
// CodecID and CodecPrivate blob it requires: Xiph-style laced headers for
// Vorbis/Theora, verbatim extradata for FLAC and most native codecs, AAC
// sample-rate extraction from the audio-specific-config, and a
// BITMAPINFOHEADER/WAVEFORMATEX fallback for codecs with no native
// Matroska CodecID.
package codec

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mkvmux/mkvmux/codectag"
	"github.com/mkvmux/mkvmux/ebml"
	"github.com/mkvmux/mkvmux/xiph"
)

// Type classifies a Stream for track-type and shaping purposes.
type Type int

const (
	Video Type = iota
	Audio
	Subtitle
	Other
)

// AspectRatio is a stream's sample (pixel) aspect ratio, numerator over
// denominator; a zero Num means "unknown/square".
type AspectRatio struct {
	Num, Den int
}

// Stream is the header-time descriptor the muxer receives for each input
// track, specified only by the contract this package (and mux.TrackWriter)
// consume — the packet producer that populates it is an external
// collaborator.
type Stream struct {
	CodecID           string // the producer's own codec identifier, e.g. "h264", "vorbis"
	Type              Type
	CodecTag          uint32 // optional, producer-supplied FourCC/wFormatTag
	Extradata         []byte
	Width, Height     int
	SampleAspectRatio AspectRatio
	SampleRate        int
	Channels          int
	Language          string
	BitExact          bool
}

// Result is what TrackWriter needs to emit a TrackEntry's codec fields.
type Result struct {
	CodecID          string
	CodecPrivate     []byte
	BitDepth         int     // 0 means "do not emit BitDepth"
	SampleRate       float64 // 0 means "use Stream.SampleRate as given"
	OutputSampleRate float64 // 0 means "do not emit OutputSamplingFrequency"
}

var (
	// ErrShortFLACStreaminfo is returned when a FLAC stream's extradata is
	// shorter than the mandatory 34-byte STREAMINFO block.
	ErrShortFLACStreaminfo = errors.New("codec: FLAC extradata shorter than STREAMINFO (34 bytes)")
	// ErrUnsupportedCodec is returned (wrapped) for a non-native codec with
	// no usable fallback: an audio codec with no WAV format tag, a video
	// codec with no BMP FourCC, a fallback table outside the profile, or a
	// stream type with no wrapped form.
	ErrUnsupportedCodec = errors.New("codec: no native CodecID and no WAV format tag available")
)

// native maps a producer codec id to its Matroska CodecID, for codecs
// Matroska can carry without a BITMAPINFOHEADER/WAVEFORMATEX wrapper.
var native = map[string]string{
	"h264":      "V_MPEG4/ISO/AVC",
	"hevc":      "V_MPEGH/ISO/HEVC",
	"mpeg4":     "V_MPEG4/ISO/ASP",
	"vp8":       "V_VP8",
	"vp9":       "V_VP9",
	"av1":       "V_AV1",
	"theora":    "V_THEORA",
	"vorbis":    "A_VORBIS",
	"flac":      "A_FLAC",
	"aac":       "A_AAC",
	"mp3":       "A_MPEG/L3",
	"mp2":       "A_MPEG/L2",
	"ac3":       "A_AC3",
	"opus":      "A_OPUS",
	"pcm_s16le": "A_PCM/INT/LIT",
	"srt":       "S_TEXT/UTF8",
	"ass":       "S_TEXT/ASS",
}

// xiphHint is the first-packet length passed to xiph.Split for codecs that
// pack their headers using Xiph/Ogg lacing.
var xiphHint = map[string]int{
	"vorbis": 30,
	"theora": 42,
}

// bitDepth is the fixed sample bit depth implied by a native PCM codec id.
var bitDepth = map[string]int{
	"pcm_s16le": 16,
}

// hasTagTable reports whether name is in tables; a nil tables means every
// table is allowed.
func hasTagTable(tables []string, name string) bool {
	if tables == nil {
		return true
	}
	for _, t := range tables {
		if t == name {
			return true
		}
	}
	return false
}

// Shape resolves s to the CodecID/CodecPrivate (and any audio rate
// overrides) its TrackEntry must carry. tagTables restricts which
// codectag fallback tables the non-native path may consult ("BMP", "WAV");
// a nil tagTables means no restriction, for callers with no profile to
// scope against.
func Shape(s Stream, tagTables []string) (Result, error) {
	codecID, isNative := native[s.CodecID]
	if !isNative {
		return shapeWrapped(s, tagTables)
	}

	res := Result{CodecID: codecID, BitDepth: bitDepth[s.CodecID]}

	if hint, ok := xiphHint[s.CodecID]; ok {
		headers, err := xiph.Split(s.Extradata, hint)
		if err != nil {
			return Result{}, errors.Wrapf(err, "codec: shaping %s headers", s.CodecID)
		}
		res.CodecPrivate = buildXiphPrivate(headers)
		return res, nil
	}

	if s.CodecID == "flac" {
		if len(s.Extradata) < 34 {
			return Result{}, ErrShortFLACStreaminfo
		}
		res.CodecPrivate = append([]byte(nil), s.Extradata...)
		return res, nil
	}

	if s.CodecID == "aac" {
		sniffAAC(&res, s.Extradata)
	}

	res.CodecPrivate = append([]byte(nil), s.Extradata...)
	return res, nil
}

// buildXiphPrivate assembles the 0x02 | xiph-laced-lengths | headers blob
// Matroska expects for Vorbis/Theora CodecPrivate.
func buildXiphPrivate(headers [3][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x02)
	buf.Write(ebml.XiphLacedSize(len(headers[0])))
	buf.Write(ebml.XiphLacedSize(len(headers[1])))
	buf.Write(headers[0])
	buf.Write(headers[1])
	buf.Write(headers[2])
	return buf.Bytes()
}

// shapeWrapped handles codecs with no native Matroska CodecID, falling back
// to the legacy VFW/ACM wrapping.
func shapeWrapped(s Stream, tagTables []string) (Result, error) {
	if s.Type == Video {
		fourCC := s.CodecTag
		if fourCC == 0 {
			var ok bool
			if !hasTagTable(tagTables, "BMP") {
				return Result{}, errors.Wrapf(ErrUnsupportedCodec, "video codec %q: BMP table not in profile", s.CodecID)
			}
			if fourCC, ok = codectag.BMP[s.CodecID]; !ok {
				return Result{}, errors.Wrapf(ErrUnsupportedCodec, "video codec %q", s.CodecID)
			}
		}
		hdr := codectag.BitmapInfoHeader{
			Width:       int32(s.Width),
			Height:      int32(s.Height),
			Planes:      1,
			BitCount:    24,
			Compression: fourCC,
		}
		return Result{CodecID: "V_MS/VFW/FOURCC", CodecPrivate: hdr.Marshal()}, nil
	}

	if s.Type == Audio {
		tag := uint16(s.CodecTag)
		if tag == 0 {
			var ok bool
			if !hasTagTable(tagTables, "WAV") {
				return Result{}, errors.Wrapf(ErrUnsupportedCodec, "audio codec %q: WAV table not in profile", s.CodecID)
			}
			if tag, ok = codectag.WAV[s.CodecID]; !ok {
				return Result{}, errors.Wrapf(ErrUnsupportedCodec, "audio codec %q", s.CodecID)
			}
		}
		hdr := codectag.WaveFormatEx{
			FormatTag:     tag,
			Channels:      uint16(s.Channels),
			SamplesPerSec: uint32(s.SampleRate),
			BlockAlign:    1,
			BitsPerSample: 16,
		}
		return Result{CodecID: "A_MS/ACM", CodecPrivate: hdr.Marshal()}, nil
	}

	return Result{}, errors.Wrapf(ErrUnsupportedCodec, "stream type for codec %q has no wrapped fallback", s.CodecID)
}
