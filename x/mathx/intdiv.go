package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b); zero when b is zero.
func CeilDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return a/b + min(a%b, 1)
}

// CeilLog2 is the smallest n with 1<<n >= v. Divider selection on
// power-of-two prescalers uses it.
func CeilLog2[T constraints.Unsigned](v T) uint {
	var n uint
	for p := T(1); p < v; p <<= 1 {
		n++
		if p<<1 == 0 {
			break
		}
	}
	return n
}
