package mux

// Profile is an output format registration: the two Matroska flavors this
// muxer supports, differing in declared MIME type, default extension, and
// which codec-tag tables the non-native fallback path may consult.
type Profile struct {
	Name              string
	MIMEType          string
	Extension         string
	DocType           string // "matroska" or "webm"
	DefaultAudioCodec string
	DefaultVideoCodec string // empty for audio-only profiles
	CodecTagTables    []string
}

// ProfileMatroska is the general-purpose audio+video+subtitle container.
var ProfileMatroska = Profile{
	Name:              "matroska",
	MIMEType:          "video/x-matroska",
	Extension:         ".mkv",
	DocType:           "matroska",
	DefaultAudioCodec: "mp2",
	DefaultVideoCodec: "mpeg4",
	CodecTagTables:    []string{"BMP", "WAV"},
}

// ProfileMatroskaAudio is the audio-only variant: no video default, and no
// BMP tag table since it never carries a video track.
var ProfileMatroskaAudio = Profile{
	Name:              "matroska-audio",
	MIMEType:          "audio/x-matroska",
	Extension:         ".mka",
	DocType:           "matroska",
	DefaultAudioCodec: "mp2",
	CodecTagTables:    []string{"WAV"},
}
