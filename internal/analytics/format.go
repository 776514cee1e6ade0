package analytics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatMoney renders an amount with thousands separators, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, code string) string {
	p := message.NewPrinter(language.English)
	value := p.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	if strings.EqualFold(code, "USD") || code == "" {
		if strings.HasPrefix(value, "-") {
			return "-$" + value[1:]
		}
		return "$" + value
	}
	return value + " " + strings.ToUpper(code)
}

// FormatMinutes renders a duration in minutes as "Xh Ym".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0h 0m"
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
