package tile

// viridisStops are evenly spaced RGB anchors of the viridis colour map.
// Intermediate values are linearly interpolated between neighbouring stops.
var viridisStops = [...][3]uint8{
	{68, 1, 84},
	{59, 82, 139},
	{33, 145, 140},
	{94, 201, 98},
	{253, 231, 37},
}

// Ramp maps suitability values onto the viridis colour scale. Values are
// stretched linearly between Min and Max; values outside the range clamp
// to the end colours.
type Ramp struct {
	Min float64
	Max float64
}

// ViridisRamp returns a ramp stretched over [min, max].
func ViridisRamp(min, max float64) Ramp {
	return Ramp{Min: min, Max: max}
}

// At returns the ramp colour for v. A degenerate ramp (Max <= Min) maps
// every value to the top colour.
func (r Ramp) At(v float64) (red, green, blue uint8) {
	t := 1.0
	if span := r.Max - r.Min; span > 0 {
		t = (v - r.Min) / span
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(viridisStops)-1)
	i := int(pos)
	if i >= len(viridisStops)-1 {
		last := viridisStops[len(viridisStops)-1]
		return last[0], last[1], last[2]
	}
	f := pos - float64(i)
	lo := viridisStops[i]
	hi := viridisStops[i+1]
	red = lerpByte(lo[0], hi[0], f)
	green = lerpByte(lo[1], hi[1], f)
	blue = lerpByte(lo[2], hi[2], f)
	return
}

func lerpByte(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
