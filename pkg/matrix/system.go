package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// System is a small real linear system J*dx = rhs backed by a sparse LU
// factorization. Indices are 1-based, as in the underlying matrix.
//
// Factoring overwrites the matrix in place and reorders it, after which new
// elements can no longer be looked up. System therefore keeps the element
// handles taken at creation and a copy of the stamped values, and loads
// them before every factorization.
type System struct {
	Size     int
	matrix   *sparse.Matrix
	elements [][]*sparse.Element
	values   [][]float64
	rhs      []float64
	solution []float64
}

func NewSystem(size int) (*System, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	sys := &System{
		Size:     size,
		matrix:   mat,
		elements: make([][]*sparse.Element, size+1),
		values:   make([][]float64, size+1),
		rhs:      make([]float64, size+1),
		solution: make([]float64, size+1),
	}

	// Jacobians here are dense; allocate every element up front.
	for i := 1; i <= size; i++ {
		sys.elements[i] = make([]*sparse.Element, size+1)
		sys.values[i] = make([]float64, size+1)
		for j := 1; j <= size; j++ {
			sys.elements[i][j] = mat.GetElement(int64(i), int64(j))
		}
	}

	return sys, nil
}

func (s *System) Set(i, j int, value float64) error {
	if i <= 0 || j <= 0 || i > s.Size || j > s.Size {
		return fmt.Errorf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, s.Size)
	}
	s.values[i][j] = value
	return nil
}

func (s *System) SetRHS(i int, value float64) error {
	if i <= 0 || i > s.Size {
		return fmt.Errorf("rhs index out of bounds (i=%d, size=%d)", i, s.Size)
	}
	s.rhs[i] = value
	return nil
}

func (s *System) Clear() {
	for i := 1; i <= s.Size; i++ {
		for j := range s.values[i] {
			s.values[i][j] = 0
		}
	}
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

// Solve factors the stamped matrix with a fresh pivot order, so a Jacobian
// whose structure changed since the last pass still gets a usable pivot.
func (s *System) Solve() error {
	s.matrix.Clear()
	for i := 1; i <= s.Size; i++ {
		for j := 1; j <= s.Size; j++ {
			s.elements[i][j].Real = s.values[i][j]
		}
	}
	s.matrix.NeedsOrdering = true

	err := s.matrix.Factor()
	if err != nil {
		return fmt.Errorf("matrix factorization failed: %w", err)
	}

	s.solution, err = s.matrix.Solve(s.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}

	return nil
}

// Solution returns x[1..Size]; x[0] is unused.
func (s *System) Solution() []float64 {
	return s.solution
}

func (s *System) Destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
	}
}
