package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/revtax/internal/alerts"
	"github.com/odyssey-erp/revtax/internal/compliance"
	"github.com/odyssey-erp/revtax/internal/tax"
)

const reportTemplate = `<html><head><meta charset="utf-8"><title>Revenue report {{.Summary.Period}}</title>
<style>body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}.label{text-align:left;}</style>
</head><body>
<h1>Revenue &amp; Tax Report – {{.Summary.Period}}</h1>
<p>{{date .Summary.WindowStart}} to {{date .Summary.WindowEnd}} · {{.Summary.OrderCount}} orders · generated {{date .GeneratedAt}}</p>
<table><tbody>
<tr><td class="label">Total Revenue</td><td>{{inr .Summary.TotalRevenue}}</td></tr>
<tr><td class="label">Total Discount</td><td>{{inr .Summary.TotalDiscount}}</td></tr>
<tr><td class="label">Taxable Amount</td><td>{{inr .Summary.TaxableAmount}}</td></tr>
</tbody></table>
<h2>Tax ({{.Summary.Regime}})</h2>
<table><tbody>
{{range .Summary.TaxBreakdown}}<tr><td class="label">{{.Name}}</td><td>{{inr .Amount}}</td></tr>
{{end}}<tr><th>Total Tax</th><td><strong>{{inr .Summary.TotalTax}}</strong></td></tr>
</tbody></table>
{{with .Deadline}}<p>Next deadline: <strong>{{date .NextDeadline}}</strong> ({{.DaysRemaining}} days remaining)</p>{{end}}
</body></html>`

const alertTemplate = `<html><body style="font-family:sans-serif">
<p>Dear {{.OwnerName}},</p>
<p>Your {{.Threshold}} reminder: tax for <strong>{{.Period}}</strong> is due on <strong>{{date .Deadline}}</strong>, {{.DaysRemaining}} days from now.</p>
<table style="border-collapse:collapse">
<tr><td>Revenue</td><td style="text-align:right">{{inr .Revenue}}</td></tr>
{{range .Breakdown}}<tr><td>{{.Name}}</td><td style="text-align:right">{{inr .Amount}}</td></tr>
{{end}}<tr><td><strong>Total tax due</strong></td><td style="text-align:right"><strong>{{inr .TaxDue}}</strong></td></tr>
</table>
<p>Reference {{.ID}}</p>
</body></html>`

var templates = template.Must(template.New("report").Funcs(template.FuncMap{
	"inr":  FormatINR,
	"date": formatDate,
}).Parse(reportTemplate))

var emailTemplate = template.Must(template.Must(templates.Clone()).New("alert").Parse(alertTemplate))

// ReportData feeds the revenue report template.
type ReportData struct {
	Summary     compliance.Summary
	Deadline    *tax.Deadline
	GeneratedAt time.Time
}

// RenderReportHTML renders the printable revenue report.
func RenderReportHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "report", data); err != nil {
		return "", fmt.Errorf("export: render report: %w", err)
	}
	return buf.String(), nil
}

// RenderAlertEmail returns the subject and HTML body of a deadline reminder.
func RenderAlertEmail(req alerts.Request) (string, string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.ExecuteTemplate(&buf, "alert", req); err != nil {
		return "", "", fmt.Errorf("export: render alert: %w", err)
	}
	subject := fmt.Sprintf("Tax due %s for %s (%d days left)", formatDate(req.Deadline), req.Period, req.DaysRemaining)
	return subject, buf.String(), nil
}
