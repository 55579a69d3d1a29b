package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-qpm/pkg/matrix"
)

func TestSystem_Solve2x2(t *testing.T) {
	sys, err := matrix.NewSystem(2)
	require.NoError(t, err)
	defer sys.Destroy()

	require.NoError(t, sys.Set(1, 1, 2))
	require.NoError(t, sys.Set(1, 2, 1))
	require.NoError(t, sys.Set(2, 1, 1))
	require.NoError(t, sys.Set(2, 2, 3))
	require.NoError(t, sys.SetRHS(1, 3))
	require.NoError(t, sys.SetRHS(2, 5))

	require.NoError(t, sys.Solve())
	x := sys.Solution()
	assert.InDelta(t, 0.8, x[1], 1e-12)
	assert.InDelta(t, 1.4, x[2], 1e-12)
}

// TestSystem_Reuse mirrors a Newton loop: clear, restamp, solve again.
func TestSystem_Reuse(t *testing.T) {
	sys, err := matrix.NewSystem(2)
	require.NoError(t, err)
	defer sys.Destroy()

	for k := 1; k <= 3; k++ {
		sys.Clear()
		scale := float64(k)
		require.NoError(t, sys.Set(1, 1, scale))
		require.NoError(t, sys.Set(2, 2, 2*scale))
		require.NoError(t, sys.SetRHS(1, scale))
		require.NoError(t, sys.SetRHS(2, 4*scale))
		require.NoError(t, sys.Solve())

		x := sys.Solution()
		assert.InDelta(t, 1.0, x[1], 1e-12, "pass %d", k)
		assert.InDelta(t, 2.0, x[2], 1e-12, "pass %d", k)
	}
}

// TestSystem_PivotChange restamps a matrix whose first pivot order has a
// zero on the diagonal the second time round.
func TestSystem_PivotChange(t *testing.T) {
	sys, err := matrix.NewSystem(2)
	require.NoError(t, err)
	defer sys.Destroy()

	require.NoError(t, sys.Set(1, 1, 2))
	require.NoError(t, sys.Set(1, 2, 1))
	require.NoError(t, sys.Set(2, 1, 1))
	require.NoError(t, sys.Set(2, 2, 3))
	require.NoError(t, sys.SetRHS(1, 3))
	require.NoError(t, sys.SetRHS(2, 5))
	require.NoError(t, sys.Solve())

	sys.Clear()
	require.NoError(t, sys.Set(1, 2, 1))
	require.NoError(t, sys.Set(2, 1, 1))
	require.NoError(t, sys.SetRHS(1, 3))
	require.NoError(t, sys.SetRHS(2, 5))
	require.NoError(t, sys.Solve())

	x := sys.Solution()
	assert.InDelta(t, 5.0, x[1], 1e-12)
	assert.InDelta(t, 3.0, x[2], 1e-12)
}

func TestSystem_Singular(t *testing.T) {
	sys, err := matrix.NewSystem(2)
	require.NoError(t, err)
	defer sys.Destroy()

	require.NoError(t, sys.Set(1, 1, 1))
	require.NoError(t, sys.Set(1, 2, 2))
	require.NoError(t, sys.Set(2, 1, 2))
	require.NoError(t, sys.Set(2, 2, 4))
	require.NoError(t, sys.SetRHS(1, 1))
	assert.Error(t, sys.Solve())

	// A singular pass leaves the system usable.
	sys.Clear()
	require.NoError(t, sys.Set(1, 1, 4))
	require.NoError(t, sys.Set(2, 2, 2))
	require.NoError(t, sys.SetRHS(1, 8))
	require.NoError(t, sys.SetRHS(2, 2))
	require.NoError(t, sys.Solve())

	x := sys.Solution()
	assert.InDelta(t, 2.0, x[1], 1e-12)
	assert.InDelta(t, 1.0, x[2], 1e-12)
}

func TestSystem_OutOfBounds(t *testing.T) {
	sys, err := matrix.NewSystem(2)
	require.NoError(t, err)
	defer sys.Destroy()

	assert.Error(t, sys.Set(0, 1, 1))
	assert.Error(t, sys.Set(1, 3, 1))
	assert.Error(t, sys.SetRHS(3, 1))
}
