// Package mux assembles encoded packets and stream metadata into a
// Matroska/EBML file: seek-heads, cue index, codec-private shaping, and the
// cluster-by-cluster packet stream all live here, layered over package
// ebml's primitive writer.
package mux

import (
	"crypto/md5"
	"hash"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkvmux/mkvmux/codec"
	"github.com/mkvmux/mkvmux/ebml"
)

const (
	defaultClusterMaxBytes   = 5 << 20
	defaultClusterMaxDeltaMS = 5000
	defaultSeekHeadCapacity  = 10
	ebmlVersion              = 1
	ebmlMaxIDLength          = 4
	ebmlMaxSizeLength        = 8
	docTypeVersion           = 2
	muxingAppName            = "mkvmux"
)

// Options gathers the muxer's tunables into one construction-time struct,
// rather than a long positional constructor.
type Options struct {
	Logger *zap.Logger
	Metrics *Metrics

	// ClusterMaxBytes and ClusterMaxDeltaMS bound how large (in file
	// position) and how long (in presentation-time milliseconds) a single
	// Cluster may grow before the next packet starts a new one. Zero means
	// "use the default".
	ClusterMaxBytes   int64
	ClusterMaxDeltaMS int64

	// SeekHeadCapacity bounds how many entries the reserved main seek-head
	// can index. Zero means "use the default" (10).
	SeekHeadCapacity int

	// Title, if non-empty, is written into Info.
	Title string
}

func (o Options) withDefaults() Options {
	if o.ClusterMaxBytes == 0 {
		o.ClusterMaxBytes = defaultClusterMaxBytes
	}
	if o.ClusterMaxDeltaMS == 0 {
		o.ClusterMaxDeltaMS = defaultClusterMaxDeltaMS
	}
	if o.SeekHeadCapacity == 0 {
		o.SeekHeadCapacity = defaultSeekHeadCapacity
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Muxer drives the three-phase Matroska write pipeline over a single Sink.
// It is not safe for concurrent use: callers owning a shared sink serialize
// access the way the corpus serializes a broadcast writer at the caller
// layer, not inside the codec primitive.
type Muxer struct {
	w       *ebml.Writer
	profile Profile
	opts    Options
	logger  *zap.Logger
	metrics *Metrics

	streams      []codec.Stream
	trackNumbers []uint64
	bitExact     bool

	segmentPayloadStart int64
	mainSeekHead        *SeekHead
	clusterSeekHead     *SeekHead
	cues                *CueBuilder

	durationOffset   int64
	segmentUIDOffset int64
	duration         int64

	clusterReservation ebml.Reservation
	clusterOpenOffset  int64
	clusterPTS         int64

	digest hash.Hash
}

// New constructs a Muxer writing to s under profile, with opts supplying
// rollover thresholds, seek-head capacity, logging, and metrics.
func New(s ebml.Sink, profile Profile, opts Options) *Muxer {
	opts = opts.withDefaults()
	return &Muxer{
		w:       ebml.NewWriter(s),
		profile: profile,
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// WriteHeader runs Phase H: the EBML header, the Segment open, both
// seek-heads, Info (with placeholders for Duration and SegmentUID), Tracks,
// and the first Cluster.
func (m *Muxer) WriteHeader(streams []codec.Stream) error {
	m.streams = streams
	m.bitExact = len(streams) > 0 && streams[0].BitExact
	m.digest = md5.New()

	if err := m.writeEBMLHeader(); err != nil {
		return errors.Wrap(err, "mux: write EBML header")
	}

	if _, err := m.w.OpenSegment(idSegment); err != nil {
		return errors.Wrap(err, "mux: open segment")
	}
	pos, err := m.w.Tell()
	if err != nil {
		return err
	}
	m.segmentPayloadStart = pos

	m.mainSeekHead, err = NewReservedSeekHead(m.w, m.segmentPayloadStart, m.opts.SeekHeadCapacity)
	if err != nil {
		return errors.Wrap(err, "mux: reserve main seek-head")
	}
	m.clusterSeekHead = NewAppendedSeekHead(m.w, m.segmentPayloadStart)

	if err := m.writeInfo(); err != nil {
		return errors.Wrap(err, "mux: write info")
	}

	tracksPos, err := m.w.Tell()
	if err != nil {
		return err
	}
	m.mainSeekHead.AddEntry(idTracks, tracksPos)

	tw := NewTrackWriter(m.w, m.profile.CodecTagTables)
	numbers, err := tw.WriteTracks(streams)
	if err != nil {
		m.logger.Error("track writing failed", zap.Error(err))
		return errors.Wrap(err, "mux: write tracks")
	}
	m.trackNumbers = numbers

	m.cues = NewCueBuilder(m.w, m.segmentPayloadStart)

	if err := m.openCluster(0); err != nil {
		return errors.Wrap(err, "mux: open first cluster")
	}
	return nil
}

func (m *Muxer) writeEBMLHeader() error {
	r, err := m.w.OpenMaster(idEBML)
	if err != nil {
		return err
	}
	if err := m.w.PutUint(idEBMLVersion, ebmlVersion); err != nil {
		return err
	}
	if err := m.w.PutUint(idEBMLReadVersion, ebmlVersion); err != nil {
		return err
	}
	if err := m.w.PutUint(idEBMLMaxIDLength, ebmlMaxIDLength); err != nil {
		return err
	}
	if err := m.w.PutUint(idEBMLMaxSizeLength, ebmlMaxSizeLength); err != nil {
		return err
	}
	if err := m.w.PutString(idDocType, m.profile.DocType); err != nil {
		return err
	}
	if err := m.w.PutUint(idDocTypeVersion, docTypeVersion); err != nil {
		return err
	}
	if err := m.w.PutUint(idDocTypeReadVersion, docTypeVersion); err != nil {
		return err
	}
	return m.w.CloseMaster(r)
}

func (m *Muxer) writeInfo() error {
	infoPos, err := m.w.Tell()
	if err != nil {
		return err
	}
	m.mainSeekHead.AddEntry(idInfo, infoPos)

	r, err := m.w.OpenMaster(idInfo)
	if err != nil {
		return err
	}
	if err := m.w.PutUint(idTimecodeScale, 1_000_000); err != nil {
		return err
	}
	if m.opts.Title != "" {
		if err := m.w.PutString(idTitle, m.opts.Title); err != nil {
			return err
		}
	}
	if !m.bitExact {
		if err := m.w.PutString(idMuxingApp, muxingAppName); err != nil {
			return err
		}
		if err := m.w.PutString(idWritingApp, muxingAppName); err != nil {
			return err
		}
		m.segmentUIDOffset, err = m.w.Tell()
		if err != nil {
			return err
		}
		if err := m.w.PutVoid(19); err != nil {
			return err
		}
	}
	m.durationOffset, err = m.w.Tell()
	if err != nil {
		return err
	}
	if err := m.w.PutVoid(11); err != nil {
		return err
	}
	return m.w.CloseMaster(r)
}

// openCluster indexes the new Cluster into the cluster seek-head, opens it
// with the given origin timecode, and resets rollover bookkeeping.
func (m *Muxer) openCluster(pts int64) error {
	pos, err := m.w.Tell()
	if err != nil {
		return err
	}
	m.clusterSeekHead.AddEntry(idCluster, pos)

	r, err := m.w.OpenMaster(idCluster)
	if err != nil {
		return err
	}
	if err := m.w.PutUint(idTimecode, uint64(pts)); err != nil {
		return err
	}
	m.clusterReservation = r
	m.clusterOpenOffset = pos
	m.clusterPTS = pts
	m.metrics.clusterOpened()
	m.logger.Debug("cluster opened", zap.Int64("pts", pts), zap.Int64("offset", pos))
	return nil
}

// WritePacket runs Phase P for one packet: cluster rollover, block
// emission, and (for video keyframes) a cue entry.
func (m *Muxer) WritePacket(p Packet) error {
	pos, err := m.w.Tell()
	if err != nil {
		return err
	}
	if pos-m.clusterOpenOffset > m.opts.ClusterMaxBytes || p.PTS > m.clusterPTS+m.opts.ClusterMaxDeltaMS {
		if err := m.w.CloseMaster(m.clusterReservation); err != nil {
			return errors.Wrap(err, "mux: close cluster for rollover")
		}
		if err := m.openCluster(p.PTS); err != nil {
			return errors.Wrap(err, "mux: roll over cluster")
		}
		n := len(p.Data)
		if n > 200 {
			n = 200
		}
		if _, err := m.digest.Write(p.Data[:n]); err != nil {
			return errors.Wrap(err, "mux: digest cluster seed")
		}
	}

	if int(p.StreamIndex) >= len(m.streams) {
		return errors.Errorf("mux: packet stream index %d out of range", p.StreamIndex)
	}
	stream := m.streams[p.StreamIndex]
	isVideoKeyframe := p.KeyFrame() && stream.Type == codec.Video

	var blockFlags byte
	switch {
	case isVideoKeyframe:
		blockFlags = 0x80
	case stream.Type == codec.Subtitle:
		blockFlags = byte(p.Flags) &^ 0x80
	default:
		blockFlags = byte(p.Flags)
	}

	rel := p.PTS - m.clusterPTS
	if rel < -32768 || rel > 32767 {
		return errors.Errorf("mux: packet pts %d outside cluster %d's 16-bit timecode range", p.PTS, m.clusterPTS)
	}
	header := [4]byte{
		0x80 | byte(p.StreamIndex+1),
		byte(uint16(rel) >> 8),
		byte(uint16(rel)),
		blockFlags,
	}

	if stream.Type == codec.Subtitle {
		if err := m.writeBlockGroup(header, p); err != nil {
			return err
		}
	} else {
		if err := m.writeSimpleBlock(header, p); err != nil {
			return err
		}
	}
	m.metrics.bytesWritten(len(p.Data))

	if isVideoKeyframe {
		m.cues.Add(uint64(p.StreamIndex+1), p.PTS, m.clusterOpenOffset)
		m.metrics.cueWritten()
	}

	m.duration = p.PTS + int64(p.Duration)
	return nil
}

func (m *Muxer) writeSimpleBlock(header [4]byte, p Packet) error {
	if err := m.w.PutID(idSimpleBlock); err != nil {
		return err
	}
	if err := m.w.PutSize(uint64(len(p.Data)+len(header)), 0); err != nil {
		return err
	}
	if err := m.w.WriteRaw(header[:]); err != nil {
		return err
	}
	return m.w.WriteRaw(p.Data)
}

func (m *Muxer) writeBlockGroup(header [4]byte, p Packet) error {
	r, err := m.w.OpenMaster(idBlockGroup)
	if err != nil {
		return err
	}
	if err := m.w.PutID(idBlock); err != nil {
		return err
	}
	if err := m.w.PutSize(uint64(len(p.Data)+len(header)), 0); err != nil {
		return err
	}
	if err := m.w.WriteRaw(header[:]); err != nil {
		return err
	}
	if err := m.w.WriteRaw(p.Data); err != nil {
		return err
	}
	if err := m.w.PutUint(idBlockDuration, uint64(p.Duration)); err != nil {
		return err
	}
	return m.w.CloseMaster(r)
}

// WriteTrailer runs Phase T: closes the last cluster, writes Cues and the
// cluster seek-head, finalizes the main seek-head into its reservation, and
// back-patches Duration and (unless bit-exact output was requested)
// SegmentUID.
func (m *Muxer) WriteTrailer() error {
	if err := m.w.CloseMaster(m.clusterReservation); err != nil {
		return errors.Wrap(err, "mux: close final cluster")
	}

	cuesPos, err := m.cues.Finalize()
	if err != nil {
		return errors.Wrap(err, "mux: write cues")
	}
	clusterSeekHeadPos, err := m.clusterSeekHead.Finalize()
	if err != nil {
		return errors.Wrap(err, "mux: write cluster seek-head")
	}

	if err := m.mainSeekHead.AddEntry(idCues, cuesPos); err != nil {
		m.metrics.seekHeadNearFull()
		return errors.Wrap(err, "mux: index cues")
	}
	if err := m.mainSeekHead.AddEntry(idSeekHead, clusterSeekHeadPos); err != nil {
		m.metrics.seekHeadNearFull()
		return errors.Wrap(err, "mux: index cluster seek-head")
	}
	if _, err := m.mainSeekHead.Finalize(); err != nil {
		return errors.Wrap(err, "mux: finalize main seek-head")
	}

	if err := m.backpatch(m.durationOffset, func() error {
		return m.w.PutFloat(idDuration, float64(m.duration))
	}); err != nil {
		return errors.Wrap(err, "mux: back-patch duration")
	}

	if !m.bitExact {
		sum := m.digest.Sum(nil)
		if err := m.backpatch(m.segmentUIDOffset, func() error {
			return m.w.PutBinary(idSegmentUID, sum)
		}); err != nil {
			return errors.Wrap(err, "mux: back-patch segment UID")
		}
	}
	return nil
}

// backpatch seeks to offset, runs fn (expected to write exactly the bytes
// reserved there), and restores the writer to its prior position.
func (m *Muxer) backpatch(offset int64, fn func() error) error {
	end, err := m.w.Tell()
	if err != nil {
		return err
	}
	if _, err := m.w.Sink().Seek(offset, io.SeekStart); err != nil {
		return errors.Wrap(err, "mux: seek to reservation")
	}
	if err := fn(); err != nil {
		return err
	}
	if _, err := m.w.Sink().Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "mux: restore cursor after back-patch")
	}
	return nil
}
