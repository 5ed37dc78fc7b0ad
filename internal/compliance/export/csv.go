package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/revtax/internal/compliance"
	"github.com/odyssey-erp/revtax/internal/revenue"
)

// WriteSummaryCSV serialises a revenue summary as metric/value rows followed
// by one row per tax component.
func WriteSummaryCSV(w io.Writer, summary compliance.Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Period", summary.Period},
		{"Window Start", summary.WindowStart.Format(revenue.DateLayout)},
		{"Window End", summary.WindowEnd.Format(revenue.DateLayout)},
		{"Orders", strconv.Itoa(summary.OrderCount)},
		{"Total Revenue", formatFloat(summary.TotalRevenue)},
		{"Total Discount", formatFloat(summary.TotalDiscount)},
		{"Taxable Amount", formatFloat(summary.TaxableAmount)},
		{"Regime", string(summary.Regime)},
	}
	for _, c := range summary.TaxBreakdown {
		records = append(records, []string{c.Name, formatFloat(c.Amount)})
	}
	records = append(records, []string{"Total Tax", formatFloat(summary.TotalTax)})
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
