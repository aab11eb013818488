package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)

	_, err = New(-3)
	require.Error(t, err)
}

func TestMeanEmptyIsAbsent(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)

	_, ok := b.Mean()
	require.False(t, ok)
	require.Equal(t, 0, b.Len())
}

func TestAppendWithinCapacity(t *testing.T) {
	b, err := New(5)
	require.NoError(t, err)

	b.Append(10)
	b.Append(20)
	b.Append(30)

	require.Equal(t, 3, b.Len())
	mean, ok := b.Mean()
	require.True(t, ok)
	require.InDelta(t, 20.0, mean, 1e-9)
	require.Equal(t, []float64{10, 20, 30}, b.Contents())
}

func TestWindowBoundInvariant(t *testing.T) {
	const capacity = 3
	b, err := New(capacity)
	require.NoError(t, err)

	for n := 1; n <= 10; n++ {
		b.Append(float64(n))
		require.LessOrEqual(t, b.Len(), capacity)
		require.Equal(t, min(n, capacity), b.Len())
	}

	// After 10 appends, the last 3 values (8, 9, 10) must remain, oldest first.
	require.Equal(t, []float64{8, 9, 10}, b.Contents())
}

func TestEvictionOrder(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)

	b.Append(1)
	b.Append(2)
	require.Equal(t, []float64{1, 2}, b.Contents())

	b.Append(3) // evicts 1
	require.Equal(t, []float64{2, 3}, b.Contents())

	b.Append(4) // evicts 2
	require.Equal(t, []float64{3, 4}, b.Contents())
}

func TestClear(t *testing.T) {
	b, err := New(3)
	require.NoError(t, err)

	b.Append(1)
	b.Append(2)
	b.Clear()

	require.Equal(t, 0, b.Len())
	_, ok := b.Mean()
	require.False(t, ok)

	// Buffer remains usable after Clear.
	b.Append(42)
	mean, ok := b.Mean()
	require.True(t, ok)
	require.InDelta(t, 42.0, mean, 1e-9)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
