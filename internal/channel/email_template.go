package channel

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const layoutHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;background:#f5f5f5;margin:0;padding:24px">
<table width="100%" cellpadding="0" cellspacing="0" style="max-width:600px;margin:auto;background:#fff;border-top:4px solid {{.Accent}}">
<tr><td style="padding:24px">
<p style="color:#888;font-size:12px;text-transform:uppercase;margin:0">{{.Heading}}</p>
<h1 style="font-size:20px;color:#222">{{.Title}}</h1>
<p style="font-size:14px;color:#444;line-height:1.5">{{.Body}}</p>
{{- if .Details}}
<table cellpadding="4" style="font-size:13px;color:#555">
{{- range .Details}}
<tr><td style="color:#888">{{.Key}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
</td></tr>
</table>
</body>
</html>`

var layout = template.Must(template.New("layout").Parse(layoutHTML))

type categoryStyle struct {
	Heading string
	Accent  string
}

var categoryStyles = map[string]categoryStyle{
	"bookingUpdates":      {"Bookings", "#2f80ed"},
	"paymentUpdates":      {"Payments", "#27ae60"},
	"loanUpdates":         {"Loans", "#27ae60"},
	"rentalUpdates":       {"Rentals", "#9b51e0"},
	"orderUpdates":        {"Orders", "#f2994a"},
	"jobUpdates":          {"Jobs", "#56ccf2"},
	"courseUpdates":       {"Academy", "#6fcf97"},
	"messages":            {"Messages", "#2d9cdb"},
	"reviewRequests":      {"Reviews", "#f2c94c"},
	"referralUpdates":     {"Referrals", "#bb6bd9"},
	"subscriptionUpdates": {"Subscription", "#eb5757"},
	"adminAlerts":         {"Admin", "#eb5757"},
	"securityAlerts":      {"Security", "#eb5757"},
}

var defaultStyle = categoryStyle{"Marketplace", "#333333"}

type detail struct {
	Key   string
	Value string
}

type emailView struct {
	categoryStyle
	Title   string
	Body    string
	Details []detail
}

// renderEmail builds the subject and the HTML body of a message. All
// user-supplied values are escaped by html/template.
func renderEmail(msg *Message) (string, string, error) {
	style, ok := categoryStyles[msg.Category]
	if !ok {
		style = defaultStyle
	}

	view := emailView{
		categoryStyle: style,
		Title:         msg.Title,
		Body:          msg.Body,
		Details:       details(msg.Data),
	}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("failed to render email: %w", err)
	}

	subject := msg.Title
	if msg.Email != nil && msg.Email.Subject != "" {
		subject = msg.Email.Subject
	}
	return subject, buf.String(), nil
}

func details(data map[string]any) []detail {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]detail, 0, len(keys))
	for _, k := range keys {
		out = append(out, detail{Key: k, Value: formatValue(data[k])})
	}
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC1123)
	case time.Time:
		return t.UTC().Format(time.RFC1123)
	default:
		return fmt.Sprint(v)
	}
}
