package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/safeconv"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	t.Run("fits", func(t *testing.T) {
		t.Parallel()

		got, err := safeconv.Convert[uint16](300)
		require.NoError(t, err)
		assert.Equal(t, uint16(300), got)
	})

	t.Run("too_large", func(t *testing.T) {
		t.Parallel()

		_, err := safeconv.Convert[uint16](math.MaxUint16 + 1)
		require.ErrorIs(t, err, safeconv.ErrOutOfRange)
	})

	t.Run("negative_to_unsigned", func(t *testing.T) {
		t.Parallel()

		_, err := safeconv.Convert[uint32](-1)
		require.ErrorIs(t, err, safeconv.ErrOutOfRange)
	})

	t.Run("unsigned_to_signed_overflow", func(t *testing.T) {
		t.Parallel()

		_, err := safeconv.Convert[int8](uint8(200))
		require.ErrorIs(t, err, safeconv.ErrOutOfRange)
	})
}

func TestMustHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42, safeconv.Must[int](uint(42)))
	assert.Equal(t, uint32(math.MaxUint32), safeconv.MustIntToUint32(math.MaxUint32))
	assert.Equal(t, uint64(7), safeconv.MustIntToUint64(7))

	assert.Panics(t, func() { safeconv.MustIntToUint32(-3) })
	assert.Panics(t, func() { safeconv.MustIntToUint64(-1) })
}
