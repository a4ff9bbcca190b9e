// Package analysis computes frequency-domain properties of coefficient
// banks for inspection tools.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// minPoints is the smallest FFT used for a response.
	minPoints = 512

	// fftHermitianDivisor: a real FFT of size N has N/2 + 1 unique bins.
	fftHermitianDivisor = 2

	// silenceDB is reported for bins with zero magnitude.
	silenceDB = -400.0
)

// Response is the magnitude response of a tap set from DC to Nyquist.
type Response struct {
	// Freqs are in cycles per sample of the rate the taps run at.
	Freqs []float64

	// Magnitude is the linear gain at each frequency.
	Magnitude []float64
}

// FrequencyResponse evaluates the response of taps on at least points
// FFT bins. The FFT size is the next power of two that is at least
// points, twice the tap count and minPoints.
func FrequencyResponse(taps []float64, points int) (*Response, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("frequency response of an empty tap set")
	}

	size := minPoints
	for size < points || size < fftHermitianDivisor*len(taps) {
		size *= 2
	}

	fft := fourier.NewFFT(size)
	padded := make([]float64, size)
	copy(padded, taps)
	coeffs := fft.Coefficients(nil, padded)

	r := &Response{
		Freqs:     make([]float64, len(coeffs)),
		Magnitude: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		r.Freqs[i] = fft.Freq(i)
		r.Magnitude[i] = cmplx.Abs(c)
	}
	return r, nil
}

// DB converts a linear gain to decibels.
func DB(gain float64) float64 {
	if gain <= 0 {
		return silenceDB
	}
	return 20 * math.Log10(gain)
}

// MagnitudeDB returns the response in decibels.
func (r *Response) MagnitudeDB() []float64 {
	out := make([]float64, len(r.Magnitude))
	for i, m := range r.Magnitude {
		out[i] = DB(m)
	}
	return out
}

// DCGain returns the gain at 0 Hz.
func (r *Response) DCGain() float64 {
	return r.Magnitude[0]
}

// Cutoff returns the first frequency at which the response has dropped
// more than dropDB below the DC gain, or 0.5 when it never does.
func (r *Response) Cutoff(dropDB float64) float64 {
	limit := DB(r.DCGain()) - dropDB
	for i, m := range r.Magnitude {
		if DB(m) < limit {
			return r.Freqs[i]
		}
	}
	return r.Freqs[len(r.Freqs)-1]
}

// StopbandAttenuation returns how far, in dB, the strongest bin at or
// above freq lies below the DC gain.
func (r *Response) StopbandAttenuation(freq float64) float64 {
	peak := 0.0
	for i, f := range r.Freqs {
		if f >= freq {
			peak = math.Max(peak, r.Magnitude[i])
		}
	}
	return DB(r.DCGain()) - DB(peak)
}

// PassbandRipple returns the peak-to-peak deviation in dB below freq.
func (r *Response) PassbandRipple(freq float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, f := range r.Freqs {
		if f > freq {
			break
		}
		db := DB(r.Magnitude[i])
		lo = math.Min(lo, db)
		hi = math.Max(hi, db)
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return hi - lo
}
