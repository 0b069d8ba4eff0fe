package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency renders a monetary value with locale-aware grouping, e.g.
// 1234567.89 -> "$1,234,568".
func Currency(v float64) string {
	return printer.Sprintf("$%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Number renders a plain value with locale-aware grouping, no symbol.
func Number(v float64) string {
	return printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Percent renders a ratio as a percentage with one decimal.
func Percent(v float64) string {
	return printer.Sprintf("%v%%", number.Decimal(v, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
}
