package fit

import "math"

// Bound is an inclusive range for one parameter. Either side may be infinite.
type Bound struct {
	Min float64
	Max float64
}

// Unbounded is the range (-Inf, +Inf).
var Unbounded = Bound{Min: math.Inf(-1), Max: math.Inf(1)}

// Between returns the range [lo, hi].
func Between(lo, hi float64) Bound { return Bound{Min: lo, Max: hi} }

// AtLeast returns the range [lo, +Inf).
func AtLeast(lo float64) Bound { return Bound{Min: lo, Max: math.Inf(1)} }

// normalized repairs an inverted or empty finite range the same way for
// every caller: hi collapses onto lo+1.
func (b Bound) normalized() Bound {
	if math.IsNaN(b.Min) {
		b.Min = math.Inf(-1)
	}
	if math.IsNaN(b.Max) {
		b.Max = math.Inf(1)
	}
	if !math.IsInf(b.Min, 0) && !math.IsInf(b.Max, 0) && b.Max <= b.Min {
		b.Max = b.Min + 1
	}
	return b
}

// Clamp limits v to the range.
func (b Bound) Clamp(v float64) float64 {
	b = b.normalized()
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func (b Bound) hasMin() bool { return !math.IsInf(b.Min, -1) }
func (b Bound) hasMax() bool { return !math.IsInf(b.Max, 1) }

// toExternal maps an internal coordinate onto the bounded range.
func (b Bound) toExternal(u float64) float64 {
	switch {
	case b.hasMin() && b.hasMax():
		return b.Min + (math.Sin(u)+1)*(b.Max-b.Min)/2
	case b.hasMin():
		return b.Min - 1 + math.Sqrt(u*u+1)
	case b.hasMax():
		return b.Max + 1 - math.Sqrt(u*u+1)
	default:
		return u
	}
}

// toInternal is the inverse of toExternal for values inside the range.
func (b Bound) toInternal(x float64) float64 {
	x = b.Clamp(x)
	switch {
	case b.hasMin() && b.hasMax():
		r := 2*(x-b.Min)/(b.Max-b.Min) - 1
		return math.Asin(math.Max(-1, math.Min(1, r)))
	case b.hasMin():
		d := x - b.Min + 1
		return math.Sqrt(d*d - 1)
	case b.hasMax():
		d := b.Max - x + 1
		return math.Sqrt(d*d - 1)
	default:
		return x
	}
}
