package wire

import "math"

// GSHalf is a raw IEEE-754 binary16 value, stored as its bit pattern so that
// decode-then-encode round trips are bit-exact even for values (subnormals,
// NaN payloads) that a float32 round trip through Go's math package would
// not otherwise preserve.
type GSHalf uint16

// Float32ToHalf converts f to the nearest binary16 value.
func Float32ToHalf(f float32) GSHalf {
	bits := math.Float32bits(f)

	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp <= 0:
		if exp < -10 {
			return GSHalf(sign)
		}
		mant |= 0x800000
		shift := uint(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 {
			half++
		}
		return GSHalf(sign | half)
	case exp >= 0x1f:
		if (bits>>23)&0xff == 0xff && mant != 0 {
			return GSHalf(sign | 0x7e00 | uint16(mant>>13))
		}
		return GSHalf(sign | 0x7c00)
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		if mant&0x1000 != 0 {
			half++
		}
		return GSHalf(half)
	}
}

// Float32 converts h to its float32 value.
func (h GSHalf) Float32() float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		e := int32(-1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		bits := sign | uint32(127-15+1+e)<<23 | mant<<13
		return math.Float32frombits(bits)
	case 0x1f:
		if mant == 0 {
			return math.Float32frombits(sign | 0x7f800000)
		}
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		bits := sign | (exp-15+127)<<23 | mant<<13
		return math.Float32frombits(bits)
	}
}
