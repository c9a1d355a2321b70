package mux

import (
	"testing"

	"github.com/matryer/is"
	"github.com/mkvmux/mkvmux/codec"
	"github.com/mkvmux/mkvmux/sink"
)

func TestMuxerSingleKeyframe(t *testing.T) {
	is := is.New(t)
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	streams := []codec.Stream{{CodecID: "h264", Type: codec.Video, Width: 320, Height: 240}}
	is.NoErr(m.WriteHeader(streams))

	payload := make([]byte, 1000)
	is.NoErr(m.WritePacket(Packet{StreamIndex: 0, PTS: 0, Duration: 40, Flags: FlagKeyFrame, Data: payload}))
	is.NoErr(m.WriteTrailer())

	dec := newTestDecoder(buf.Bytes())
	segment := dec.mustMaster(idSegment)

	clusters := dec.masters(segment, idCluster)
	is.Equal(len(clusters), 1)
	is.Equal(dec.uintField(clusters[0], idTimecode), uint64(0))

	blocks := dec.masters(clusters[0], idSimpleBlock)
	is.Equal(len(blocks), 1)
	is.Equal(len(blocks[0]), 1004) // 4-byte header + 1000-byte payload

	cues := dec.masters(segment, idCues)
	is.Equal(len(cues), 1)
	points := dec.masters(cues[0], idCuePoint)
	is.Equal(len(points), 1)
	is.Equal(dec.uintField(points[0], idCueTime), uint64(0))
}

func TestMuxerClusterRolloverOnTime(t *testing.T) {
	is := is.New(t)
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	streams := []codec.Stream{
		{CodecID: "h264", Type: codec.Video, Width: 320, Height: 240},
		{CodecID: "mp3", Type: codec.Audio, SampleRate: 44100, Channels: 2},
	}
	is.NoErr(m.WriteHeader(streams))

	for i := 0; i < 600; i++ {
		pts := int64(i * 10)
		flags := Flags(0)
		if i%100 == 0 {
			flags = FlagKeyFrame
		}
		is.NoErr(m.WritePacket(Packet{StreamIndex: 0, PTS: pts, Duration: 10, Flags: flags, Data: []byte{1, 2, 3}}))
		is.NoErr(m.WritePacket(Packet{StreamIndex: 1, PTS: pts, Duration: 10, Data: []byte{4, 5}}))
	}
	is.NoErr(m.WriteTrailer())

	dec := newTestDecoder(buf.Bytes())
	clusters := dec.masters(dec.mustMaster(idSegment), idCluster)
	is.Equal(len(clusters), 2)
	is.Equal(dec.uintField(clusters[0], idTimecode), uint64(0))
	is.Equal(dec.uintField(clusters[1], idTimecode), uint64(5010)) // first pts strictly past clusterPTS+5000
}

func TestMuxerBitExactOmitsIdentifiers(t *testing.T) {
	is := is.New(t)
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	streams := []codec.Stream{{CodecID: "h264", Type: codec.Video, Width: 320, Height: 240, BitExact: true}}
	is.NoErr(m.WriteHeader(streams))
	is.NoErr(m.WritePacket(Packet{StreamIndex: 0, PTS: 0, Duration: 40, Flags: FlagKeyFrame, Data: []byte{9, 9, 9}}))
	is.NoErr(m.WriteTrailer())

	dec := newTestDecoder(buf.Bytes())
	info := dec.mustMaster(idInfo)
	is.Equal(len(dec.masters(info, idMuxingApp)), 0)
	is.Equal(len(dec.masters(info, idWritingApp)), 0)
	is.Equal(len(dec.masters(info, idSegmentUID)), 0)
}

func TestMuxerSubtitleUsesBlockGroup(t *testing.T) {
	is := is.New(t)
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	streams := []codec.Stream{{CodecID: "srt", Type: codec.Subtitle}}
	is.NoErr(m.WriteHeader(streams))
	is.NoErr(m.WritePacket(Packet{StreamIndex: 0, PTS: 0, Duration: 2000, Data: []byte("hello")}))
	is.NoErr(m.WriteTrailer())

	dec := newTestDecoder(buf.Bytes())
	clusters := dec.masters(dec.mustMaster(idSegment), idCluster)
	groups := dec.masters(clusters[0], idBlockGroup)
	is.Equal(len(groups), 1)
	is.Equal(dec.uintField(groups[0], idBlockDuration), uint64(2000))
}

func TestMuxerMainSeekHeadIndexesAllTargets(t *testing.T) {
	is := is.New(t)
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	streams := []codec.Stream{{CodecID: "h264", Type: codec.Video, Width: 320, Height: 240}}
	is.NoErr(m.WriteHeader(streams))
	is.NoErr(m.WritePacket(Packet{StreamIndex: 0, PTS: 0, Duration: 40, Flags: FlagKeyFrame, Data: []byte{1, 2, 3}}))
	is.NoErr(m.WriteTrailer())

	dec := newTestDecoder(buf.Bytes())
	segment := dec.mustMaster(idSegment)
	seekHead := dec.masters(segment, idSeekHead)[0]

	seen := map[uint32]bool{}
	for _, s := range dec.masters(seekHead, idSeek) {
		id := dec.masters(s, idSeekID)
		is.Equal(len(id), 1)
		var v uint32
		for _, b := range id[0] {
			v = v<<8 | uint32(b)
		}
		seen[v] = true
	}
	for _, want := range []uint32{idInfo, idTracks, idCues, idSeekHead} {
		is.True(seen[want])
	}
}

func TestMuxerRejectsUnsupportedTrackType(t *testing.T) {
	is := is.New(t)
	buf := sink.NewBuffer()
	m := New(buf, ProfileMatroska, Options{})

	err := m.WriteHeader([]codec.Stream{{CodecID: "unknown", Type: codec.Other}})
	is.True(err != nil)
}
