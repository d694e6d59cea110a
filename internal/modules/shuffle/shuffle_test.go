package shuffle

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Deterministic_Same_Seed_Same_Order(t *testing.T) {
	// Arrange
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	seed := "40_-74_1700000000000"

	// Act
	first := Deterministic(items, seed)
	second := Deterministic(items, seed)

	// Assert
	require.Equal(t, first, second)
}

func Test_Deterministic_Different_Seeds_Differ(t *testing.T) {
	// Arrange
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	// Act
	first := Deterministic(items, "40_-74_1700000000000")
	second := Deterministic(items, "40_-74_1700000000001")

	// Assert
	require.NotEqual(t, first, second)
}

func Test_Deterministic_Is_A_Permutation(t *testing.T) {
	// Arrange
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	// Act
	shuffled := Deterministic(items, "seed")

	// Assert
	require.Len(t, shuffled, len(items))

	sorted := make([]int, len(shuffled))
	copy(sorted, shuffled)
	sort.Ints(sorted)
	require.Equal(t, items, sorted)
}

func Test_Deterministic_Does_Not_Modify_Input(t *testing.T) {
	// Arrange
	items := []string{"a", "b", "c", "d", "e"}

	// Act
	_ = Deterministic(items, "seed")

	// Assert
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
}

func Test_Deterministic_Handles_Empty_And_Single(t *testing.T) {
	require.Empty(t, Deterministic([]int{}, "seed"))
	require.Equal(t, []int{42}, Deterministic([]int{42}, "seed"))
}

func Test_Source_Float64_In_Unit_Interval(t *testing.T) {
	// Arrange
	rng := NewSource("some seed")

	// Act / Assert
	for i := 0; i < 10_000; i++ {
		draw := rng.Float64()
		require.GreaterOrEqual(t, draw, 0.0)
		require.Less(t, draw, 1.0)
	}
}

func Test_Source_Stream_Is_Reproducible(t *testing.T) {
	// Arrange
	first := NewSource("seed")
	second := NewSource("seed")

	// Act / Assert
	for i := 0; i < 100; i++ {
		require.Equal(t, first.Float64(), second.Float64())
	}
}
