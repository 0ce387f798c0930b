package invoices

import (
	"html/template"
	"strings"
	"time"
)

// invoiceTemplate is the HTML handed to the external PDF renderer. The
// renderer consumes a finished snapshot; nothing here feeds back into the
// stored invoice.
var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.totals { margin-top: 16px; width: 40%; margin-left: auto; }
.totals td { border: none; }
.status { text-transform: uppercase; letter-spacing: 1px; }
</style>
</head>
<body>
<h1>Invoice {{.Number}}</h1>
<p class="status">{{.Status}}</p>
<p>
{{.Customer.Name}}<br>
{{if .Customer.Address}}{{.Customer.Address}}<br>{{end}}
{{if .Customer.Email}}{{.Customer.Email}}<br>{{end}}
{{if .Customer.Phone}}{{.Customer.Phone}}<br>{{end}}
{{if .Customer.GSTIN}}GSTIN: {{.Customer.GSTIN}}{{end}}
</p>
<p>Issued {{.IssueDate.Format "2 Jan 2006"}} &middot; Due {{.DueDate.Format "2 Jan 2006"}}</p>
<table>
<tr><th>Item</th><th>SKU</th><th>Qty</th><th>Unit</th><th>Discount</th><th>VAT</th><th>Total</th></tr>
{{range .Items}}
<tr><td>{{.ProductName}}</td><td>{{.SKU}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.DiscountAmount}}</td><td>{{.VATAmount}}</td><td>{{.LineTotal}}</td></tr>
{{end}}
</table>
<table class="totals">
<tr><td>Subtotal</td><td>{{.Subtotal}}</td></tr>
<tr><td>Item discounts</td><td>-{{.TotalItemDiscount}}</td></tr>
{{if not .WithoutVAT}}<tr><td>VAT</td><td>{{.TotalVAT}}</td></tr>{{end}}
{{if ne .OverallDiscountAmount "0.00"}}<tr><td>Overall discount</td><td>-{{.OverallDiscountAmount}}</td></tr>{{end}}
<tr><td><strong>Grand total</strong></td><td><strong>{{.GrandTotal}}</strong></td></tr>
</table>
{{if .Notes}}<p>{{.Notes}}</p>{{end}}
</body>
</html>`))

func renderInvoiceHTML(inv *Invoice, now time.Time) (string, error) {
	var sb strings.Builder
	if err := invoiceTemplate.Execute(&sb, ToResponse(inv, now)); err != nil {
		return "", err
	}
	return sb.String(), nil
}
