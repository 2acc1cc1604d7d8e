package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "loomworks/pkg/errors"
)

func TestParseRange(t *testing.T) {
	t.Run("well-formed range", func(t *testing.T) {
		low, high, err := ParseRange("50000-60000")
		require.NoError(t, err)
		assert.Equal(t, int64(50000), low)
		assert.Equal(t, int64(60000), high)
	})

	t.Run("tolerates surrounding whitespace", func(t *testing.T) {
		low, high, err := ParseRange(" 100 - 200 ")
		require.NoError(t, err)
		assert.Equal(t, int64(100), low)
		assert.Equal(t, int64(200), high)
	})

	for _, input := range []string{"", "50000", "abc-200", "100-xyz", "100000"} {
		t.Run("rejects "+input, func(t *testing.T) {
			_, _, err := ParseRange(input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestMidpoint(t *testing.T) {
	mid, err := Midpoint("100000-110000")
	require.NoError(t, err)
	assert.Equal(t, "105000", mid.String())

	// Odd sums keep the half, nothing is truncated.
	mid, err = Midpoint("0-5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", mid.String())
}

func TestDeriveFinancials(t *testing.T) {
	t.Run("expenses is revenue midpoint minus profit midpoint", func(t *testing.T) {
		point, err := DeriveFinancials("2026-01", "100000-110000", "20000-30000")
		require.NoError(t, err)
		assert.Equal(t, "2026-01", point.Month)
		assert.Equal(t, "105000", point.Revenue.String())
		assert.Equal(t, "25000", point.Profit.String())
		assert.Equal(t, "80000", point.Expenses.String())
	})

	t.Run("malformed revenue range fails", func(t *testing.T) {
		_, err := DeriveFinancials("2026-01", "lots", "20000-30000")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	t.Run("malformed profit range fails", func(t *testing.T) {
		_, err := DeriveFinancials("2026-01", "100000-110000", "some")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})
}
