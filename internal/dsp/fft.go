// fft.go - mixed-radix FFT standing in for PFFFT
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

package dsp

import "math/cmplx"

// FFT is a reusable, non-SIMD mixed-radix Cooley-Tukey transform over
// lengths of the form 2^a * 3^b * 5^c (a >= 1), the same length family
// PFFFT supports. It stands in for openal-soft's common/pffft.cpp, which
// the retrieval pack has no Go binding or equivalent library for (see
// DESIGN.md) — used by the convolution effect for overlap-add
// convolution.
type FFT struct {
	n       int
	factors []int
}

// NewFFT builds a plan for length n. n must factor into 2s, 3s and 5s;
// callers that need overlap-add convolution should round their frame
// size up to the next such length (see NextFastLen).
func NewFFT(n int) *FFT {
	return &FFT{n: n, factors: factorize(n)}
}

func factorize(n int) []int {
	var f []int
	for n%2 == 0 {
		f = append(f, 2)
		n /= 2
	}
	for n%3 == 0 {
		f = append(f, 3)
		n /= 3
	}
	for n%5 == 0 {
		f = append(f, 5)
		n /= 5
	}
	if n != 1 {
		// Fall back: treat any leftover factor as a single radix-n DFT stage.
		f = append(f, n)
	}
	return f
}

// NextFastLen returns the smallest value >= n that factors only into 2,
// 3 and 5.
func NextFastLen(n int) int {
	if n < 1 {
		return 1
	}
	for {
		m := n
		for m%2 == 0 {
			m /= 2
		}
		for m%3 == 0 {
			m /= 3
		}
		for m%5 == 0 {
			m /= 5
		}
		if m == 1 {
			return n
		}
		n++
	}
}

// Forward computes the in-place forward DFT of data (length must equal
// the plan's n).
func (p *FFT) Forward(data []complex128) {
	dft(data, p.factors, false)
}

// Inverse computes the in-place inverse DFT, including the 1/N scaling
// (so Forward then Inverse recovers the input to float rounding error).
func (p *FFT) Inverse(data []complex128) {
	dft(data, p.factors, true)
	n := complex(float64(len(data)), 0)
	for i := range data {
		data[i] /= n
	}
}

// dft performs a recursive mixed-radix Cooley-Tukey transform via
// decimation in time: split the input into `radix` interleaved (strided)
// subsequences, transform each recursively, and combine with twiddle
// factors. The strided split generalises cleanly to radix 3 and 5 with
// no precomputed reversal permutation.
func dft(data []complex128, factors []int, inverse bool) {
	n := len(data)
	if n <= 1 {
		return
	}
	if len(factors) <= 1 {
		dftDirect(data, inverse)
		return
	}
	radix := factors[0]
	m := n / radix

	subs := make([][]complex128, radix)
	for r := 0; r < radix; r++ {
		sub := make([]complex128, m)
		for i := 0; i < m; i++ {
			sub[i] = data[i*radix+r]
		}
		dft(sub, factors[1:], inverse)
		subs[r] = sub
	}

	sign := -1.0
	if inverse {
		sign = 1.0
	}
	for k := 0; k < n; k++ {
		var sum complex128
		for r := 0; r < radix; r++ {
			angle := sign * 2.0 * 3.141592653589793 * float64(r*k) / float64(n)
			sum += subs[r][k%m] * cmplx.Exp(complex(0, angle))
		}
		data[k] = sum
	}
}

// dftDirect is the base case once the factor list is exhausted: a direct
// O(n^2) DFT. Leaf sizes are single radices (2, 3 or 5, or a leftover
// prime for off-family lengths), so the quadratic cost stays trivial.
func dftDirect(data []complex128, inverse bool) {
	n := len(data)
	if n <= 1 {
		return
	}
	sign := -1.0
	if inverse {
		sign = 1.0
	}
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			angle := sign * 2.0 * 3.141592653589793 * float64(j*k) / float64(n)
			sum += data[j] * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum
	}
	copy(data, out)
}
