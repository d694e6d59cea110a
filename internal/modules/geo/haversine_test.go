package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_HaversineKm_Returns_Zero_For_Identical_Points(t *testing.T) {
	// Arrange
	lat, lng := 40.0, -74.0

	// Act
	distance := HaversineKm(lat, lng, lat, lng)

	// Assert
	require.Zero(t, distance)
}

func Test_HaversineKm_Matches_Known_Distance(t *testing.T) {
	// One degree of latitude is roughly 111.2 km regardless of longitude.
	distance := HaversineKm(40.0, -74.0, 41.0, -74.0)

	require.InDelta(t, 111.2, distance, 0.1)
}

func Test_HaversineKm_Is_Symmetric(t *testing.T) {
	// Arrange
	lat1, lng1 := 40.7128, -74.0060
	lat2, lng2 := 40.7614, -73.9776

	// Act
	forward := HaversineKm(lat1, lng1, lat2, lng2)
	backward := HaversineKm(lat2, lng2, lat1, lng1)

	// Assert
	require.Equal(t, forward, backward)
	require.Greater(t, forward, 0.0)
	require.Less(t, forward, 10.0)
}

func Test_RoundTenth_Rounds_To_One_Decimal(t *testing.T) {
	require.Equal(t, 1.2, RoundTenth(1.24999))
	require.Equal(t, 1.3, RoundTenth(1.25))
	require.Equal(t, 0.0, RoundTenth(0.04))
}
