// Package render produces the printable proposal document in HTML and PDF.
package render

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Amounts are always shown in Brazilian reais with pt-BR grouping.
var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// Money formats v as "R$ 1.234,56".
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if v < 0 {
		return "-R$ " + ptBR.Sprint(number.Decimal(-v, number.Scale(2)))
	}
	return "R$ " + ptBR.Sprint(number.Decimal(v, number.Scale(2)))
}

// Quantity formats a quantity without trailing zeros: "2", "1,5".
func Quantity(v float64) string {
	return ptBR.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}
