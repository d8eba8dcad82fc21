package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRupiah(t *testing.T) {
	assert.Equal(t, "Rp 12.000", FormatRupiah(12000))
	assert.Equal(t, "Rp 1.250.500", FormatRupiah(1250500))
	assert.Equal(t, "Rp 0", FormatRupiah(0))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Pembayaran", Describe(nil, 0))
	assert.Equal(t, "Lunas: Januari 2025, Februari 2025", Describe([]string{"Januari 2025", "Februari 2025"}, 0))
	assert.Equal(t, "Lunas: Maret 2025 (+Rp 2.000 ke saldo)", Describe([]string{"Maret 2025"}, 2000))
}

func TestNewReferenceUnique(t *testing.T) {
	a, b := NewReference(), NewReference()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
