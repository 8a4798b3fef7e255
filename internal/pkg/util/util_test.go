package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandString(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := RandString(8)
		assert.Len(t, s, 8)
		assert.NotContains(t, s, "0")
		assert.NotContains(t, s, "O")
		seen[s] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestSameDay(t *testing.T) {
	dhaka := time.FixedZone("BDT", 6*3600)
	a := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC) // 23:00 in Dhaka
	b := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC) // 01:00 next day in Dhaka

	assert.True(t, SameDay(a, b, time.UTC))
	assert.False(t, SameDay(a, b, dhaka))
	assert.True(t, SameDay(a, a.Add(time.Hour), dhaka))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = ParseAmount("1,000")
	assert.Error(t, err)
}

func TestParseOptionalID(t *testing.T) {
	id, err := ParseOptionalID("")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseOptionalID("global")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseOptionalID("42")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, uint64(42), *id)

	_, err = ParseOptionalID("-1")
	assert.Error(t, err)
}
