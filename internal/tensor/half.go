package tensor

import "math"

// Conversions between float32 and the two 16-bit storage formats.
//
// Float16 is IEEE 754 binary16: 1 sign, 5 exponent (bias 15), 10 mantissa
// bits. Largest finite value 65504, smallest normal 2^-14.
//
// BFloat16 is truncated float32: 1 sign, 8 exponent (bias 127), 7 mantissa
// bits. Same dynamic range as float32 with ~2 decimal digits of precision,
// which is why training stacks prefer it for parameters.
//
// Narrowing uses round-to-nearest-even. NaN narrows to a quiet NaN,
// values beyond the target range narrow to infinity.

const (
	f16ExpInf  = 0x7C00
	f16NaN     = 0x7E00
	f16SignBit = 0x8000
)

// Float16From returns the float32 value of the binary16 word h.
func Float16From(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF

	switch {
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize by shifting the mantissa up until the
		// implicit bit appears.
		e := uint32(1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3FF
		exp = e + 127 - 15
	case exp == 0x1F:
		if mant == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7FC00000 | mant<<13)
	default:
		exp = exp + 127 - 15
	}
	return math.Float32frombits(sign | exp<<23 | mant<<13)
}

// Float16Bits converts f to a binary16 word, rounding to nearest even.
func Float16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & f16SignBit
	exp := int(bits>>23&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	if exp <= 0 {
		if exp < -10 {
			// Too small for a subnormal, flush to signed zero.
			return sign
		}
		mant = (mant | 0x800000) >> uint(1-exp)
		if mant&0x1000 != 0 && mant&0x2FFF != 0 {
			mant += 0x2000
		}
		return sign | uint16(mant>>13)
	}
	if exp == 0xFF-127+15 {
		if mant != 0 {
			return sign | f16NaN | uint16(mant>>13)
		}
		return sign | f16ExpInf
	}
	if exp >= 0x1F {
		return sign | f16ExpInf
	}

	// Round to nearest even: bit 12 is the round bit, a tie rounds up
	// only when the result would otherwise be odd.
	if mant&0x1000 != 0 && mant&0x2FFF != 0 {
		mant += 0x2000
		if mant&0x800000 != 0 {
			mant = 0
			exp++
			if exp >= 0x1F {
				return sign | f16ExpInf
			}
		}
	}
	return sign | uint16(exp)<<10 | uint16(mant>>13)
}

// BFloat16From returns the float32 value of the bfloat16 word b.
// bfloat16 is the upper half of a float32, so this is a shift.
func BFloat16From(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// BFloat16Bits truncates f to a bfloat16 word, rounding to nearest even.
func BFloat16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	if bits&0x7FFFFFFF > 0x7F800000 {
		// Keep NaN quiet and signed.
		return uint16(bits>>16) | 0x0040
	}
	bits += 0x7FFF + (bits >> 16 & 1)
	return uint16(bits >> 16)
}
