package mux

import (
	"github.com/pkg/errors"

	"github.com/mkvmux/mkvmux/codec"
	"github.com/mkvmux/mkvmux/ebml"
)

// ErrUnsupportedTrackType is returned for a stream whose codec.Type has no
// Matroska TrackType mapping (codec.Other and anything future).
var ErrUnsupportedTrackType = errors.New("mux: unsupported track type")

// TrackWriter emits the Tracks master and assigns each stream its
// TrackNumber, in the order streams are given.
type TrackWriter struct {
	w         *ebml.Writer
	tagTables []string
}

// NewTrackWriter returns a TrackWriter that writes through w, restricting
// non-native codec fallback to the codec-tag tables the active profile
// declares (see Profile.CodecTagTables).
func NewTrackWriter(w *ebml.Writer, tagTables []string) *TrackWriter {
	return &TrackWriter{w: w, tagTables: tagTables}
}

// WriteTracks shapes each stream's codec identity via codec.Shape and emits
// the Tracks master. It returns the 1-based track number assigned to each
// input stream, in the same order.
func (tw *TrackWriter) WriteTracks(streams []codec.Stream) ([]uint64, error) {
	numbers := make([]uint64, len(streams))

	r, err := tw.w.OpenMaster(idTracks)
	if err != nil {
		return nil, err
	}
	for i, s := range streams {
		number := uint64(i + 1)
		numbers[i] = number
		if err := tw.writeTrackEntry(number, s); err != nil {
			return nil, errors.Wrapf(err, "mux: track %d (%s)", number, s.CodecID)
		}
	}
	if err := tw.w.CloseMaster(r); err != nil {
		return nil, err
	}
	return numbers, nil
}

func (tw *TrackWriter) writeTrackEntry(number uint64, s codec.Stream) error {
	trackType, err := matroskaTrackType(s.Type)
	if err != nil {
		return err
	}
	shaped, err := codec.Shape(s, tw.tagTables)
	if err != nil {
		return errors.Wrap(err, "mux: shape codec")
	}

	r, err := tw.w.OpenMaster(idTrackEntry)
	if err != nil {
		return err
	}
	if err := tw.w.PutUint(idTrackNumber, number); err != nil {
		return err
	}
	// TrackUID mirrors TrackNumber: stable and reproducible across bit-exact
	// runs rather than drawn from a random source.
	if err := tw.w.PutUint(idTrackUID, number); err != nil {
		return err
	}
	if err := tw.w.PutUint(idTrackType, trackType); err != nil {
		return err
	}
	if err := tw.w.PutUint(idFlagLacing, 0); err != nil {
		return err
	}
	lang := s.Language
	if lang == "" {
		lang = "und"
	}
	if err := tw.w.PutString(idLanguage, lang); err != nil {
		return err
	}
	if err := tw.w.PutString(idCodecID, shaped.CodecID); err != nil {
		return err
	}
	if len(shaped.CodecPrivate) > 0 {
		if err := tw.w.PutBinary(idCodecPrivate, shaped.CodecPrivate); err != nil {
			return err
		}
	}

	switch s.Type {
	case codec.Video:
		if err := tw.writeVideoSettings(s); err != nil {
			return err
		}
	case codec.Audio:
		if err := tw.writeAudioSettings(s, shaped); err != nil {
			return err
		}
	}

	return tw.w.CloseMaster(r)
}

func (tw *TrackWriter) writeVideoSettings(s codec.Stream) error {
	r, err := tw.w.OpenMaster(idVideo)
	if err != nil {
		return err
	}
	if err := tw.w.PutUint(idPixelWidth, uint64(s.Width)); err != nil {
		return err
	}
	if err := tw.w.PutUint(idPixelHeight, uint64(s.Height)); err != nil {
		return err
	}
	// DisplayWidth/DisplayHeight carry the aspect-ratio numerator/denominator
	// verbatim rather than a scaled display resolution, matching the legacy
	// convention this muxer's output is bit-compatible with.
	if s.SampleAspectRatio.Num != 0 {
		if err := tw.w.PutUint(idDisplayWidth, uint64(s.SampleAspectRatio.Num)); err != nil {
			return err
		}
		if err := tw.w.PutUint(idDisplayHeight, uint64(s.SampleAspectRatio.Den)); err != nil {
			return err
		}
	}
	return tw.w.CloseMaster(r)
}

func (tw *TrackWriter) writeAudioSettings(s codec.Stream, shaped codec.Result) error {
	r, err := tw.w.OpenMaster(idAudio)
	if err != nil {
		return err
	}
	rate := float64(s.SampleRate)
	if shaped.SampleRate != 0 {
		rate = shaped.SampleRate
	}
	if err := tw.w.PutFloat(idSamplingFrequency, rate); err != nil {
		return err
	}
	if shaped.OutputSampleRate != 0 {
		if err := tw.w.PutFloat(idOutputSamplingFrequency, shaped.OutputSampleRate); err != nil {
			return err
		}
	}
	if err := tw.w.PutUint(idChannels, uint64(s.Channels)); err != nil {
		return err
	}
	if shaped.BitDepth != 0 {
		if err := tw.w.PutUint(idBitDepth, uint64(shaped.BitDepth)); err != nil {
			return err
		}
	}
	return tw.w.CloseMaster(r)
}

func matroskaTrackType(t codec.Type) (uint64, error) {
	switch t {
	case codec.Video:
		return trackTypeVideo, nil
	case codec.Audio:
		return trackTypeAudio, nil
	case codec.Subtitle:
		return trackTypeSubtitle, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedTrackType, "codec.Type(%d)", t)
	}
}
