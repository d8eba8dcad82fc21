package domain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount as "Rp 12.000".
func FormatRupiah(amount int64) string {
	return printer.Sprintf("Rp %d", amount)
}

// Describe builds the receipt text: the periods settled by the payment and,
// when part of the change was kept, the saved-to-balance marker.
func Describe(settledLabels []string, savedToBalance int64) string {
	text := "Pembayaran"
	if len(settledLabels) > 0 {
		text = "Lunas: " + strings.Join(settledLabels, ", ")
	}
	if savedToBalance > 0 {
		text += " (+" + FormatRupiah(savedToBalance) + " ke saldo)"
	}
	return text
}
