package assignment

// TargetCurve returns n ideal slot weights interpolated linearly from
// strongest down to weakest: target[i] = floor(strongest - (strongest-weakest)*i/(n-1)).
// Integer arithmetic keeps the curve exact; the result is non-increasing.
func TargetCurve(strongest, weakest, n int) []int {
	if n <= 0 {
		return []int{}
	}
	if n == 1 {
		return []int{strongest}
	}
	span := strongest - weakest
	targets := make([]int, n)
	for i := range targets {
		targets[i] = strongest - ceilDiv(span*i, n-1)
	}
	return targets
}

// ceilDiv divides a non-negative a by a positive b, rounding up.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
