package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	input := []int{1, 2, 3, 4, 5}

	even := Filter(input, func(i int) bool { return i%2 == 0 })

	assert.Equal(t, []int{2, 4}, even)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, input)
	assert.Empty(t, Filter([]int(nil), func(int) bool { return true }))
}

func TestParseRecordedAt(t *testing.T) {
	parsed, err := ParseRecordedAt("2024-05-02T08:15:03.123Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1714637703), parsed.Unix())

	parsed, err = ParseRecordedAt("2024-05-02T11:15:03+03:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1714637703), parsed.Unix())

	_, err = ParseRecordedAt("yesterday")
	assert.Error(t, err)
}

func TestEnvironmentDuration(t *testing.T) {
	env := map[string]string{"A": "90s", "B": "soon"}

	value, ok := EnvironmentDuration(env, "A")
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, value)

	_, ok = EnvironmentDuration(env, "B")
	assert.False(t, ok)

	_, ok = EnvironmentDuration(env, "C")
	assert.False(t, ok)
}
