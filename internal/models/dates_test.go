package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDays(t *testing.T) {
	d, err := AddDays("2025-03-01", 0)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", d)

	d, err = AddDays("2025-03-01", 2)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", d)

	// Month and leap-year boundaries
	d, err = AddDays("2024-02-28", 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d)

	d, err = AddDays("2025-12-31", 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", d)

	_, err = AddDays("bad", 1)
	assert.Error(t, err)
}

func TestReturnDateFor(t *testing.T) {
	// A 3-day stay departing day N returns on day N+2
	d, err := ReturnDateFor("2025-03-01", 3)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", d)

	d, err = ReturnDateFor("2025-03-01", 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", d)
}
