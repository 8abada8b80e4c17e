package model

// Position is a 3-D location in metres. Platform positions and the scene
// reference share one Cartesian frame; the up axis of that frame is chosen by
// the imaging configuration.
type Position struct {
	X float64
	Y float64
	Z float64
}

// PlatformTrack is the ordered sequence of antenna phase-centre positions,
// one per transmitted pulse. It is read-only once loaded.
type PlatformTrack []Position

// Len returns the number of pulses covered by the track.
func (t PlatformTrack) Len() int { return len(t) }

// Center returns the position of the middle pulse (index len/2), which is the
// aperture reference used for phase re-referencing. It returns the zero
// position for an empty track.
func (t PlatformTrack) Center() Position {
	if len(t) == 0 {
		return Position{}
	}
	return t[len(t)/2]
}
