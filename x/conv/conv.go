// Package conv provides allocation-free number formatting for console and
// telemetry output (no fmt/strconv dependency on MCU builds).
package conv

// Itoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for int64. Negative numbers supported.
func Itoa(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	neg := n < 0
	var u uint64
	if neg {
		u = uint64(-n)
	} else {
		u = uint64(n)
	}
	if u == 0 {
		i--
		buf[i] = '0'
	} else {
		for u > 0 && i > 0 {
			i--
			buf[i] = byte('0' + (u % 10))
			u /= 10
		}
	}
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// Utoa writes base-10 representation of n into buf and returns the used slice.
func Utoa(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
	} else {
		for n > 0 && i > 0 {
			i--
			buf[i] = byte('0' + (n % 10))
			n /= 10
		}
	}
	return buf[i:]
}

// FormatMilli renders a milli-unit integer as a decimal string, e.g.
// 2500 -> "2.500", -50 -> "-0.050". buf should be length >= 24.
func FormatMilli(buf []byte, milli int64) []byte {
	if len(buf) < 6 {
		return buf[:0]
	}
	neg := milli < 0
	if neg {
		milli = -milli
	}
	whole := milli / 1000
	frac := milli % 1000

	i := len(buf)
	for j := 0; j < 3; j++ {
		i--
		buf[i] = byte('0' + frac%10)
		frac /= 10
	}
	i--
	buf[i] = '.'
	if whole == 0 {
		i--
		buf[i] = '0'
	} else {
		for whole > 0 && i > 0 {
			i--
			buf[i] = byte('0' + whole%10)
			whole /= 10
		}
	}
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// MicroToMilli converts a µ-unit value to milli-units with round-to-nearest,
// for display purposes only.
func MicroToMilli(micro int64) int64 {
	if micro >= 0 {
		return (micro + 500) / 1000
	}
	return (micro - 500) / 1000
}
