package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "60.00", Format(6000))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-10.50", Format(-1050))
	assert.Equal(t, "0.00", Format(0))
}

func TestParse(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cents, err := Parse("125.5")
		require.NoError(t, err)
		assert.Equal(t, int64(12550), cents)

		cents, err = Parse("40")
		require.NoError(t, err)
		assert.Equal(t, int64(4000), cents)
	})

	t.Run("TooPrecise", func(t *testing.T) {
		_, err := Parse("1.005")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := Parse("ten")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, int64(10000), RoundUp(1, 10000))
	assert.Equal(t, int64(10000), RoundUp(10000, 10000))
	assert.Equal(t, int64(50000), RoundUp(40001, 50000))
	assert.Equal(t, int64(123), RoundUp(123, 0))
}
