// Package mathutil provides the integer helpers shared by the rate,
// decomposition and width calculations.
package mathutil

// GCD returns the greatest common divisor of a and b. GCD(0, 0) is 0.
func GCD(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns the least common multiple of two positive integers.
func LCM(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / GCD(a, b) * b
}

// Coprime reports whether a and b share no factor other than 1.
func Coprime(a, b int) bool {
	return GCD(a, b) == 1
}

// CeilDiv returns ceil(a / b) for a >= 0 and b > 0.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// CeilLog2 returns the number of bits needed to count n distinct values,
// i.e. ceil(log2(n)). CeilLog2(1) and below are 0.
func CeilLog2(n int) int {
	bits := 0
	for v := 1; v < n; v <<= 1 {
		bits++
	}
	return bits
}
