package utils

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount as dollars with grouped thousands and two
// decimals, e.g. "$1,234.50" or "-$20.00". Rounding happens only here.
func FormatMoney(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	fixed := rounded.StringFixed(2)
	frac := fixed[strings.IndexByte(fixed, '.')+1:]
	whole := moneyPrinter.Sprintf("%d", rounded.IntPart())

	return sign + "$" + whole + "." + frac
}
