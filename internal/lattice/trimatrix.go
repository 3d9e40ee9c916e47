package lattice

import "fmt"

// TriMatrix is an upper-triangular matrix backed by a flat slice.
// Cell (i, j) is defined only for 0 <= i <= j <= n; column j holds j+1
// cells starting at offset j*(j+1)/2. The flat layout makes the i <= j
// invariant structural: cells below the diagonal do not exist, so they
// can never be read or written by mistake.
type TriMatrix struct {
	n     int
	cells []float64
}

// NewTriMatrix creates a triangular matrix with columns 0..n.
func NewTriMatrix(n int) *TriMatrix {
	if n < 0 {
		panic(fmt.Sprintf("lattice: negative TriMatrix size %d", n))
	}
	return &TriMatrix{
		n:     n,
		cells: make([]float64, (n+1)*(n+2)/2),
	}
}

// N returns the highest valid column (and row) index.
func (t *TriMatrix) N() int {
	return t.n
}

// At returns the value at cell (i, j). Panics if i > j or out of range.
func (t *TriMatrix) At(i, j int) float64 {
	return t.cells[t.index(i, j)]
}

// Set stores v at cell (i, j). Panics if i > j or out of range.
func (t *TriMatrix) Set(i, j int, v float64) {
	t.cells[t.index(i, j)] = v
}

// Column returns a copy of column j (cells (0,j) .. (j,j)).
func (t *TriMatrix) Column(j int) []float64 {
	if j < 0 || j > t.n {
		panic(fmt.Sprintf("lattice: column %d out of range [0,%d]", j, t.n))
	}
	start := j * (j + 1) / 2
	col := make([]float64, j+1)
	copy(col, t.cells[start:start+j+1])
	return col
}

// Columns returns all columns as a jagged slice, column j having j+1 cells.
func (t *TriMatrix) Columns() [][]float64 {
	cols := make([][]float64, t.n+1)
	for j := 0; j <= t.n; j++ {
		cols[j] = t.Column(j)
	}
	return cols
}

func (t *TriMatrix) index(i, j int) int {
	if i < 0 || j > t.n || i > j {
		panic(fmt.Sprintf("lattice: cell (%d,%d) outside triangle [0,%d]", i, j, t.n))
	}
	return j*(j+1)/2 + i
}
