package export

import (
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount in rupees with Indian-English digit grouping.
func FormatINR(amount float64) string {
	return printer.Sprintf("₹%.2f", amount)
}

// formatFloat is the plain machine-readable form used in CSV cells.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2 January 2006")
}
