package robot

// AxisRange is the reachable interval of one axis.
type AxisRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Workspace holds the bounds of the simulated room, keyed by axis.
type Workspace map[Axis]AxisRange

// DefaultWorkspace returns the 400x400 room used by the canvas.
func DefaultWorkspace() Workspace {
	return Workspace{
		AxisX: {Min: 0, Max: 400},
		AxisY: {Min: 0, Max: 400},
		AxisZ: {Min: 0, Max: 400},
	}
}

// Normalize converts a coordinate to a value in the range [-100, 100].
func (r AxisRange) Normalize(v int) float64 {
	rangeSize := float64(r.Max - r.Min)
	if rangeSize == 0 {
		return 0
	}
	return (float64(v-r.Min)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] back to a coordinate.
func (r AxisRange) Denormalize(norm float64) int {
	rangeSize := float64(r.Max - r.Min)
	return int((norm+100)/200*rangeSize) + r.Min
}

// Contains reports whether v lies inside the range, bounds included.
func (r AxisRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Contains reports whether every bounded axis of p lies in the workspace.
// Axes without a range are unbounded.
func (w Workspace) Contains(p Pose) bool {
	for _, axis := range AllAxes() {
		r, ok := w[axis]
		if !ok {
			continue
		}
		if !r.Contains(p.Get(axis)) {
			return false
		}
	}
	return true
}

// Normalize maps every axis of p to [-100, 100] for charting.
func (w Workspace) Normalize(p Pose) map[Axis]float64 {
	out := make(map[Axis]float64, len(w))
	for _, axis := range AllAxes() {
		r, ok := w[axis]
		if !ok {
			continue
		}
		out[axis] = r.Normalize(p.Get(axis))
	}
	return out
}
