package mux

import "github.com/mkvmux/mkvmux/ebml"

// cueEntry is one track's cue point at a given presentation time.
type cueEntry struct {
	pts        int64
	track      uint64
	clusterPos int64 // segment-relative offset of the containing Cluster
}

// CueBuilder accumulates cue entries as video keyframes are written and
// emits the Cues master once muxing finishes. Entries sharing the same pts (one per
// track referencing the same keyframe cluster) collapse into a single
// CuePoint carrying multiple CueTrackPositions children.
type CueBuilder struct {
	w            *ebml.Writer
	segmentStart int64
	entries      []cueEntry
}

// NewCueBuilder returns a builder that resolves cluster offsets relative to
// segmentStart, the absolute offset of the first byte of the Segment's
// payload.
func NewCueBuilder(w *ebml.Writer, segmentStart int64) *CueBuilder {
	return &CueBuilder{w: w, segmentStart: segmentStart}
}

// Add records a cue point for track at pts, pointing at the cluster
// beginning at the given absolute offset.
func (c *CueBuilder) Add(track uint64, pts int64, absoluteClusterPos int64) {
	c.entries = append(c.entries, cueEntry{
		pts:        pts,
		track:      track,
		clusterPos: absoluteClusterPos - c.segmentStart,
	})
}

// Len reports the number of cue entries recorded so far.
func (c *CueBuilder) Len() int {
	return len(c.entries)
}

// Finalize writes the Cues master, grouping consecutive entries that share
// the same pts into one CuePoint with one CueTrackPositions per group
// member. It returns the absolute position of the Cues element; with no
// entries nothing is written and the current position is returned.
//
// Entries must already be in non-decreasing pts order, which holds as long
// as callers add them in packet order, as Muxer.WritePacket does.
func (c *CueBuilder) Finalize() (int64, error) {
	pos, err := c.w.Tell()
	if err != nil {
		return 0, err
	}
	if len(c.entries) == 0 {
		return pos, nil
	}

	r, err := c.w.OpenMaster(idCues)
	if err != nil {
		return 0, err
	}

	i := 0
	for i < len(c.entries) {
		j := i + 1
		for j < len(c.entries) && c.entries[j].pts == c.entries[i].pts {
			j++
		}
		if err := c.writeCuePoint(c.entries[i:j]); err != nil {
			return 0, err
		}
		i = j
	}

	if err := c.w.CloseMaster(r); err != nil {
		return 0, err
	}
	return pos, nil
}

func (c *CueBuilder) writeCuePoint(group []cueEntry) error {
	r, err := c.w.OpenMaster(idCuePoint)
	if err != nil {
		return err
	}
	if err := c.w.PutUint(idCueTime, uint64(group[0].pts)); err != nil {
		return err
	}
	for _, e := range group {
		rp, err := c.w.OpenMaster(idCueTrackPositions)
		if err != nil {
			return err
		}
		if err := c.w.PutUint(idCueTrack, e.track); err != nil {
			return err
		}
		if err := c.w.PutUint(idCueClusterPosition, uint64(e.clusterPos)); err != nil {
			return err
		}
		if err := c.w.CloseMaster(rp); err != nil {
			return err
		}
	}
	return c.w.CloseMaster(r)
}
