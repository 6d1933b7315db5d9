package services

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// placeholder stands in for optional fields left empty.
const placeholder = "—"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML replaces & < > " and ' with their entities. It is applied
// exactly once to every user-supplied field; a second pass double-escapes.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// receiptView is the template input. User fields are already escaped;
// text/template performs no escaping of its own.
type receiptView struct {
	ID        string
	CreatedAt string
	Name      string
	Email     string
	Phone     string
	Date      string
	Notes     string
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func newReceiptView(id string, createdAt time.Time, name, email, phone, date, notes string) receiptView {
	return receiptView{
		ID:        id,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		Name:      EscapeHTML(name),
		Email:     EscapeHTML(email),
		Phone:     orPlaceholder(EscapeHTML(phone)),
		Date:      orPlaceholder(EscapeHTML(date)),
		Notes:     orPlaceholder(EscapeHTML(notes)),
	}
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Receipt {{.ID}}</title>
<style>
  @page { size: A4; margin: 10mm; }
  body { font-family: Arial, Helvetica, sans-serif; color: #222; margin: 0; }
  .header { background: #0f766e; color: #fff; padding: 24px 32px; }
  .header h1 { margin: 0; font-size: 24px; }
  .meta { padding: 16px 32px; color: #555; font-size: 12px; }
  table { width: calc(100% - 64px); margin: 0 32px; border-collapse: collapse; }
  th, td { text-align: left; padding: 10px 12px; border-bottom: 1px solid #e5e7eb; font-size: 14px; }
  th { width: 30%; background: #f3f4f6; }
  .footer { padding: 24px 32px; font-size: 12px; color: #777; }
</style>
</head>
<body>
<div class="header"><h1>Appointment receipt</h1></div>
<p class="meta">Receipt {{.ID}} &middot; issued {{.CreatedAt}}</p>
<table>
<tr><th>Name</th><td>{{.Name}}</td></tr>
<tr><th>Email</th><td>{{.Email}}</td></tr>
<tr><th>Phone</th><td>{{.Phone}}</td></tr>
<tr><th>Date</th><td>{{.Date}}</td></tr>
<tr><th>Notes</th><td>{{.Notes}}</td></tr>
</table>
<p class="footer">Keep this receipt for your records. Present it at the front desk on the day of your appointment.</p>
</body>
</html>
`))

func renderReceiptHTML(v receiptView) (string, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute receipt template: %w", err)
	}
	return buf.String(), nil
}

// receiptEmail returns the plain-text and HTML bodies of the delivery email.
func receiptEmail(v receiptView) (text, html string) {
	text = fmt.Sprintf("Hello,\n\nYour appointment receipt %s is attached to this email.\nIssued %s.\n", v.ID, v.CreatedAt)
	html = fmt.Sprintf(`<p>Hello %s,</p><p>Your appointment receipt <strong>%s</strong> is attached to this email.</p><p>Issued %s.</p>`,
		v.Name, v.ID, v.CreatedAt)
	return text, html
}
