package valuestack

import "math"

// SubClamp returns a-b, or zero when b >= a.
func SubClamp[Q Number](a, b Q) Q {
	if b >= a {
		return 0
	}
	return a - b
}

// satAdd adds two non-negative quantities, keeping a when the sum wraps.
func satAdd[Q Number](a, b Q) Q {
	s := a + b
	if s < a {
		return a
	}
	return s
}

// AddClamp is the exported saturating add used by containers.
func AddClamp[Q Number](a, b Q) Q { return satAdd(a, b) }

func Min[Q Number](a, b Q) Q {
	if a < b {
		return a
	}
	return b
}

func Max[Q Number](a, b Q) Q {
	if a > b {
		return a
	}
	return b
}

// Ratio returns a/b as float64, zero when b is not positive.
func Ratio[Q Number](a, b Q) float64 {
	if b <= 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// FromFloat converts f into Q, truncating toward zero for integer types and
// clamping negatives to zero.
func FromFloat[Q Number](f float64) Q {
	if f <= 0 {
		return 0
	}
	return Q(f)
}

// IsIntegral reports whether Q is an integer type.
func IsIntegral[Q Number]() bool {
	one := Q(1)
	return one/2 == 0
}

// Floor drops the fractional part of q. Integer quantities pass through.
func Floor[Q Number](q Q) Q {
	if IsIntegral[Q]() {
		return q
	}
	return Q(math.Floor(float64(q)))
}
