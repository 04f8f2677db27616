package navigation

// Options bounds the zoom range
type Options struct {
	DefaultScale float64
	MinScale     float64
	MaxScale     float64
	ZoomStep     float64
}

// DefaultOptions returns the stock zoom range
func DefaultOptions() Options {
	return Options{
		DefaultScale: 1.0,
		MinScale:     0.25,
		MaxScale:     5.0,
		ZoomStep:     1.2,
	}
}

// normalized fills zero values and orders the bounds
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.MinScale <= 0 {
		o.MinScale = def.MinScale
	}
	if o.MaxScale <= 0 {
		o.MaxScale = def.MaxScale
	}
	if o.MinScale > o.MaxScale {
		o.MinScale, o.MaxScale = o.MaxScale, o.MinScale
	}
	if o.ZoomStep <= 1 {
		o.ZoomStep = def.ZoomStep
	}
	if o.DefaultScale <= 0 {
		o.DefaultScale = def.DefaultScale
	}
	o.DefaultScale = clampScale(o.DefaultScale, o.MinScale, o.MaxScale)
	return o
}

func clampScale(s, lo, hi float64) float64 {
	if s < lo {
		return lo
	}
	if s > hi {
		return hi
	}
	return s
}
