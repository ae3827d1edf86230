package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_SameCurrency(t *testing.T) {
	tbl := Table{}
	r, ok := tbl.Rate("USD", "usd")
	assert.True(t, ok)
	assert.Equal(t, 1.0, r)
}

func TestTable_DirectAndInverse(t *testing.T) {
	tbl := Table{Key("USD", "EUR"): 0.9}

	r, ok := tbl.Rate("USD", "EUR")
	assert.True(t, ok)
	assert.Equal(t, 0.9, r)

	r, ok = tbl.Rate("EUR", "USD")
	assert.True(t, ok)
	assert.InDelta(t, 1/0.9, r, 1e-12)
}

func TestTable_Missing(t *testing.T) {
	tbl := Table{}
	_, ok := tbl.Rate("USD", "JPY")
	assert.False(t, ok)
}
