package codec

// aacSampleRates is the fixed 13-entry MPEG-4 audio-specific-config
// sampling-frequency-index table; indices 13 and 14 are reserved and index
// 15 means "explicit frequency follows", none of which this muxer handles.
var aacSampleRates = [13]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000,
	22050, 16000, 12000, 11025, 8000,
	0, // index 12 has no assigned rate in the spec table quoted here
}

// sniffAAC fills res.SampleRate from the 4-bit sampling-frequency-index
// packed into the first two bytes of an AAC audio-specific-config, and (for
// 5-byte extradata signaling SBR) res.OutputSampleRate from the extension
// sampling-frequency-index in the fifth byte.
func sniffAAC(res *Result, extradata []byte) {
	if len(extradata) < 2 {
		return
	}
	sri := ((extradata[0] << 1) & 0xE) | (extradata[1] >> 7)
	if sri <= 12 {
		res.SampleRate = float64(aacSampleRates[sri])
	}

	if len(extradata) == 5 {
		sriExt := (extradata[4] >> 3) & 0xF
		if sriExt <= 12 {
			res.OutputSampleRate = float64(aacSampleRates[sriExt])
		}
	}
}
