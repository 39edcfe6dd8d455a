// Package cmat provides dense square complex matrices sized for small
// density operators. Dimensions in this codebase stay in the single
// digits, so everything is straightforward O(n^3) loops over a flat
// backing slice.
package cmat

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Matrix is an n x n complex matrix in row-major order. The zero value
// is not usable; construct with New, Identity, FromRows or Outer.
type Matrix struct {
	n    int
	data []complex128
}

// New returns the n x n zero matrix.
func New(n int) *Matrix {
	if n <= 0 {
		panic(fmt.Sprintf("cmat: dimension %d out of range", n))
	}
	return &Matrix{n: n, data: make([]complex128, n*n)}
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := New(n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// FromRows builds a matrix from row slices. All rows must have length
// equal to the number of rows.
func FromRows(rows [][]complex128) *Matrix {
	n := len(rows)
	m := New(n)
	for i, row := range rows {
		if len(row) != n {
			panic(fmt.Sprintf("cmat: row %d has length %d, want %d", i, len(row), n))
		}
		copy(m.data[i*n:(i+1)*n], row)
	}
	return m
}

// Outer returns the outer product v v†, an n x n matrix for a vector of
// length n.
func Outer(v []complex128) *Matrix {
	n := len(v)
	m := New(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.data[i*n+j] = v[i] * cmplx.Conj(v[j])
		}
	}
	return m
}

// Dim returns the matrix dimension n.
func (m *Matrix) Dim() int { return m.n }

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) complex128 {
	m.bounds(i, j)
	return m.data[i*m.n+j]
}

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v complex128) {
	m.bounds(i, j)
	m.data[i*m.n+j] = v
}

func (m *Matrix) bounds(i, j int) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(fmt.Sprintf("cmat: index (%d,%d) out of range for dimension %d", i, j, m.n))
	}
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	c := New(m.n)
	copy(c.data, m.data)
	return c
}

// Add returns m + b.
func (m *Matrix) Add(b *Matrix) *Matrix {
	m.sameDim(b)
	out := New(m.n)
	for i := range m.data {
		out.data[i] = m.data[i] + b.data[i]
	}
	return out
}

// Sub returns m - b.
func (m *Matrix) Sub(b *Matrix) *Matrix {
	m.sameDim(b)
	out := New(m.n)
	for i := range m.data {
		out.data[i] = m.data[i] - b.data[i]
	}
	return out
}

// Scale returns c * m.
func (m *Matrix) Scale(c complex128) *Matrix {
	out := New(m.n)
	for i := range m.data {
		out.data[i] = c * m.data[i]
	}
	return out
}

// Mul returns the matrix product m * b.
func (m *Matrix) Mul(b *Matrix) *Matrix {
	m.sameDim(b)
	n := m.n
	out := New(n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			a := m.data[i*n+k]
			if a == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				out.data[i*n+j] += a * b.data[k*n+j]
			}
		}
	}
	return out
}

// Adjoint returns the conjugate transpose of m.
func (m *Matrix) Adjoint() *Matrix {
	n := m.n
	out := New(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.data[j*n+i] = cmplx.Conj(m.data[i*n+j])
		}
	}
	return out
}

// Trace returns the sum of the diagonal elements.
func (m *Matrix) Trace() complex128 {
	var t complex128
	for i := 0; i < m.n; i++ {
		t += m.data[i*m.n+i]
	}
	return t
}

// FrobeniusNorm returns sqrt(sum |m_ij|^2).
func (m *Matrix) FrobeniusNorm() float64 {
	var s float64
	for _, v := range m.data {
		s += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(s)
}

// Equal reports whether m and b agree elementwise within tol in both the
// real and imaginary parts.
func (m *Matrix) Equal(b *Matrix, tol float64) bool {
	if m.n != b.n {
		return false
	}
	for i := range m.data {
		d := m.data[i] - b.data[i]
		if math.Abs(real(d)) > tol || math.Abs(imag(d)) > tol {
			return false
		}
	}
	return true
}

// Commutator returns ab - ba.
func Commutator(a, b *Matrix) *Matrix {
	return a.Mul(b).Sub(b.Mul(a))
}

// Anticommutator returns ab + ba.
func Anticommutator(a, b *Matrix) *Matrix {
	return a.Mul(b).Add(b.Mul(a))
}

func (m *Matrix) sameDim(b *Matrix) {
	if m.n != b.n {
		panic(fmt.Sprintf("cmat: dimension mismatch %d != %d", m.n, b.n))
	}
}
