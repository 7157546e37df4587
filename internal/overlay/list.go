package overlay

// MarkerList manages an ordered set of markers with dense sequential labels.
// Insertion order equals label order; removing a marker re-labels everything
// after it so the labels stay a gap-free alphabet prefix.
type MarkerList struct {
	markers []Marker
}

// NewMarkerList builds a list from existing markers, re-sequencing labels to
// restore the density invariant regardless of what was stored.
func NewMarkerList(markers []Marker) *MarkerList {
	list := &MarkerList{markers: append([]Marker(nil), markers...)}
	list.resequence()
	return list
}

// Add appends a marker at the given relative position with the next label in
// sequence and default geometry. It returns the assigned label.
func (l *MarkerList) Add(x, y, angle float64) string {
	m := Marker{
		Label:  SequenceLabel(len(l.markers)),
		X:      clampUnit(x),
		Y:      clampUnit(y),
		Angle:  NormalizeAngle(angle),
		Length: MinLength,
	}
	l.markers = append(l.markers, m)
	return m.Label
}

// RemoveAt deletes the marker at index i and re-sequences the remaining
// labels. Out-of-range indices are ignored.
func (l *MarkerList) RemoveAt(i int) {
	if i < 0 || i >= len(l.markers) {
		return
	}
	l.markers = append(l.markers[:i], l.markers[i+1:]...)
	l.resequence()
}

// MoveTo repositions the marker at index i.
func (l *MarkerList) MoveTo(i int, x, y float64) {
	if i < 0 || i >= len(l.markers) {
		return
	}
	l.markers[i].X = clampUnit(x)
	l.markers[i].Y = clampUnit(y)
}

// Rotate adjusts the marker's angle by delta degrees.
func (l *MarkerList) Rotate(i int, delta float64) {
	if i < 0 || i >= len(l.markers) {
		return
	}
	l.markers[i].Angle = NormalizeAngle(l.markers[i].Angle + delta)
}

// AdjustLength changes the arrow length by ticks scroll increments of
// LengthStep pixels, clamped to the permitted range.
func (l *MarkerList) AdjustLength(i, ticks int) {
	if i < 0 || i >= len(l.markers) {
		return
	}
	l.markers[i].Length = ClampLength(l.markers[i].Length + ticks*LengthStep)
}

// Clear removes all markers.
func (l *MarkerList) Clear() {
	l.markers = l.markers[:0]
}

// Len returns the marker count.
func (l *MarkerList) Len() int {
	return len(l.markers)
}

// Markers returns a copy of the ordered marker set.
func (l *MarkerList) Markers() []Marker {
	return append([]Marker(nil), l.markers...)
}

func (l *MarkerList) resequence() {
	for i := range l.markers {
		l.markers[i].Label = SequenceLabel(i)
	}
}

// SequenceLabel returns the label for position i: A..Z for the first 26, then
// AA, AB, ... for later positions.
func SequenceLabel(i int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < 26 {
		return string(alphabet[i])
	}
	return string(alphabet[(i/26)-1]) + string(alphabet[i%26])
}
