package money_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/money"
)

func TestParse(t *testing.T) {
	cases := map[string]int64{
		"10":     1000,
		"10.5":   1050,
		"25.50":  2550,
		"0.01":   1,
		"0":      0,
		"199.99": 19999,
	}
	for in, want := range cases {
		got, err := money.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Cents(), in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "-1", "+1", "1.234", "abc", "1.", ".5", "1e3", "1,00", "92233720368547758.08", "92233720368547759"} {
		_, err := money.Parse(in)
		assert.ErrorIs(t, err, money.ErrInvalidAmount, in)
	}

	largest, err := money.Parse("92233720368547758.07")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), largest.Cents())
}

func TestSumIsExact(t *testing.T) {
	total, err := money.Sum(money.MustParse("10.00"), money.MustParse("25.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(3550), total.Cents())
	assert.Equal(t, "35.50", total.String())

	// 0.1 + 0.2 drifts in float64; in minor units it does not.
	total, err = money.Sum(money.MustParse("0.10"), money.MustParse("0.20"))
	require.NoError(t, err)
	assert.Equal(t, "0.30", total.String())
}

func TestSumRejectsNegative(t *testing.T) {
	_, err := money.Sum(money.FromCents(100), money.FromCents(-1))
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestJSON(t *testing.T) {
	var item struct {
		Price money.Amount `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 25.5}`), &item))
	assert.Equal(t, int64(2550), item.Price.Cents())

	require.NoError(t, json.Unmarshal([]byte(`{"price": "10.00"}`), &item))
	assert.Equal(t, int64(1000), item.Price.Cents())

	assert.Error(t, json.Unmarshal([]byte(`{"price": 1e2}`), &item))

	out, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 10.00}`, string(out))
}
