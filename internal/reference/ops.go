package reference

import (
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the sample type of a model.
type Float interface {
	float32 | float64
}

// kernelOps binds the vector kernels the model runs to one precision.
type kernelOps[F Float] struct {
	// dot is the unchecked dot product of two equal-length slices.
	dot func(a, b []F) F

	// convolveMulti computes dsts[k][i] = sum(signal[i+j] * kernels[k][j]),
	// one output slice per phase kernel.
	convolveMulti func(dsts [][]F, signal []F, kernels [][]F)

	// interleave2 merges the two phase outputs of an L=2 model.
	interleave2 func(dst, a, b []F)

	sum func(a []F) F
}

var (
	ops32 = kernelOps[float32]{
		dot:           f32.DotProductUnsafe,
		convolveMulti: f32.ConvolveValidMulti,
		interleave2:   f32.Interleave2,
		sum:           f32.Sum,
	}
	ops64 = kernelOps[float64]{
		dot:           f64.DotProductUnsafe,
		convolveMulti: f64.ConvolveValidMulti,
		interleave2:   f64.Interleave2,
		sum:           f64.Sum,
	}
)

// opsFor returns the kernels for F.
func opsFor[F Float]() *kernelOps[F] {
	if ops, ok := any(&ops64).(*kernelOps[F]); ok {
		return ops
	}
	if ops, ok := any(&ops32).(*kernelOps[F]); ok {
		return ops
	}
	panic("reference: unsupported float type")
}
