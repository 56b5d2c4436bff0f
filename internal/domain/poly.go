package domain

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

// InteractionColumns is the width after interaction-only expansion of n
// columns up to the given degree: the sum of C(n, k) for k = 1..degree.
func InteractionColumns(n, degree int) int {
	total := 0
	for k := 1; k <= degree && k <= n; k++ {
		total += combin.Binomial(n, k)
	}
	return total
}

// ExpandInteractions appends products of distinct columns to m. The original
// columns come first, then every k-column product for k = 2..degree in
// lexicographic order of column indices. No bias column and no powers of a
// single column are produced. Degree 1 returns m unchanged.
func ExpandInteractions(m *mat.Dense, degree int) *mat.Dense {
	rows, n := m.Dims()
	if degree <= 1 || n < 2 {
		return m
	}

	var combos [][]int
	for k := 2; k <= degree && k <= n; k++ {
		combos = append(combos, combin.Combinations(n, k)...)
	}

	out := mat.NewDense(rows, n+len(combos), nil)
	for r := 0; r < rows; r++ {
		src := m.RawRowView(r)
		dst := out.RawRowView(r)
		copy(dst, src)
		for i, combo := range combos {
			p := 1.0
			for _, j := range combo {
				p *= src[j]
			}
			dst[n+i] = p
		}
	}
	return out
}
