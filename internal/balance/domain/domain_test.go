package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTotals(t *testing.T) {
	assert.Equal(t, Totals{TotalBill: 30000, TotalPaid: 10000, OutstandingBalance: 20000}, NewTotals(30000, 10000, 0))
	assert.Equal(t, int64(0), NewTotals(5000, 8000, 0).OutstandingBalance)
}

func TestParseLegacySaved(t *testing.T) {
	cases := map[string]int64{
		"Pembayaran":                                0,
		"Lunas: Januari 2025 (+Rp 12.000 ke saldo)": 12000,
		"Lunas: Mei 2024 +Rp12,500 ke saldo":        12500,
		"+Rp 1.000 ke saldo; +Rp 2.000 ke saldo":    3000,
		"Lunas: Juni 2024 (+Rp. 3.000 Ke Saldo)":    3000,
		"kembalian Rp 4.000":                        0,
	}
	for description, want := range cases {
		assert.Equal(t, want, ParseLegacySaved(description), description)
	}
}
