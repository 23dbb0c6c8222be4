package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationByCode(t *testing.T) {
	d, ok := DestinationByCode("fuk")
	require.True(t, ok)
	assert.Equal(t, "FUK", d.Code)
	assert.Equal(t, RegionJapan, d.Region)

	_, ok = DestinationByCode("XXX")
	assert.False(t, ok)
}

func TestFilterDestinations(t *testing.T) {
	all := FilterDestinations("", nil)
	assert.Len(t, all, len(Destinations))

	japan := FilterDestinations(RegionJapan, nil)
	require.NotEmpty(t, japan)
	for _, d := range japan {
		assert.Equal(t, RegionJapan, d.Region)
	}

	byCodes := FilterDestinations("", []string{"fuk", " KIX ", "XXX"})
	require.Len(t, byCodes, 2)

	// Region and codes combine
	mixed := FilterDestinations(RegionJapan, []string{"FUK", "BKK"})
	require.Len(t, mixed, 1)
	assert.Equal(t, "FUK", mixed[0].Code)

	assert.Empty(t, FilterDestinations("atlantis", nil))
}
