package payout

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/bookfox/bookfox/app/models"
)

// The statement is the audit artifact of a settlement. Everything rendered
// here comes from the stored payout row and its item set, never from live
// booking data, so a re-render reproduces the stored artifact byte for byte.
const statementTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Payout Statement {{.Number}}</title>
  <style>
    body { margin: 0; padding: 32px; font-family: "Helvetica Neue", Arial, sans-serif; color: #111827; }
    .statement { max-width: 820px; margin: 0 auto; }
    .header { border-bottom: 2px solid #1f2937; padding-bottom: 16px; margin-bottom: 24px; }
    .meta { font-size: 14px; color: #6b7280; }
    table { width: 100%; border-collapse: collapse; font-size: 14px; }
    th, td { padding: 10px; border-bottom: 1px solid #e5e7eb; text-align: left; }
    th { text-transform: uppercase; font-size: 11px; letter-spacing: 0.04em; color: #6b7280; }
    td.amount, th.amount { text-align: right; }
    .totals { margin-top: 16px; width: 320px; margin-left: auto; font-size: 14px; }
    .totals div { display: flex; justify-content: space-between; padding: 4px 0; }
    .totals .net { border-top: 2px solid #1f2937; font-weight: bold; }
  </style>
</head>
<body>
  <div class="statement">
    <div class="header">
      <h1>Payout Statement {{.Number}}</h1>
      <div class="meta">
        <div>Partner: {{.PartnerName}}</div>
        <div>Period: {{.PeriodStart}} &ndash; {{.PeriodEnd}}</div>
        <div>Revision: {{.Revision}}</div>
      </div>
    </div>
    <table>
      <thead>
        <tr><th>Booking</th><th>Description</th><th>Booked at</th><th class="amount">Amount</th></tr>
      </thead>
      <tbody>
        {{range .Items}}<tr><td>#{{.BookingID}}</td><td>{{.Description}}</td><td>{{.BookedAt}}</td><td class="amount">{{.Amount}}</td></tr>
        {{end}}
      </tbody>
    </table>
    <div class="totals">
      <div><span>Total collected</span><span>{{.TotalCollected}}</span></div>
      <div><span>Commission ({{.CommissionRate}}%)</span><span>-{{.Commission}}</span></div>
      <div><span>Tax on commission</span><span>-{{.CommissionTax}}</span></div>
      <div class="net"><span>Net payout</span><span>{{.NetAmount}}</span></div>
    </div>
  </div>
</body>
</html>
`

var statementTmpl = template.Must(template.New("statement").Parse(statementTemplate))

type statementItem struct {
	BookingID   uint
	Description string
	BookedAt    string
	Amount      string
}

type statementData struct {
	Number         string
	PartnerName    string
	PeriodStart    string
	PeriodEnd      string
	Revision       int
	Items          []statementItem
	TotalCollected string
	CommissionRate string
	Commission     string
	CommissionTax  string
	NetAmount      string
}

// RenderStatement renders the payout statement. Every rendered value,
// including the partner name and commission rate, comes from the payout row
// itself (they are snapshotted at settle time); the items must be in
// booking-ID order (repository.PayoutRepository loads them that way).
func RenderStatement(p *models.Payout) ([]byte, error) {
	items := make([]statementItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, statementItem{
			BookingID:   item.BookingID,
			Description: item.Description,
			BookedAt:    item.BookedAt.UTC().Format("2006-01-02"),
			Amount:      formatCents(item.AmountCents, p.Currency),
		})
	}

	data := statementData{
		Number:         fmt.Sprintf("P-%d-R%d", p.ID, p.Revision),
		PartnerName:    p.PartnerName,
		PeriodStart:    p.PeriodStart.UTC().Format("2006-01-02"),
		PeriodEnd:      p.PeriodEnd.UTC().Format("2006-01-02"),
		Revision:       p.Revision,
		Items:          items,
		TotalCollected: formatCents(p.TotalCollectedCents, p.Currency),
		CommissionRate: formatRate(p.CommissionRate),
		Commission:     formatCents(p.CommissionCents, p.Currency),
		CommissionTax:  formatCents(p.CommissionTaxCents, p.Currency),
		NetAmount:      formatCents(p.NetAmountCents, p.Currency),
	}

	var buf bytes.Buffer
	if err := statementTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

func formatRate(rate float64) string {
	s := fmt.Sprintf("%.2f", rate)
	return s
}

// statementKey is the stable storage reference of one rendered statement.
func statementKey(artifactID string) string {
	return fmt.Sprintf("statements/%s.html", artifactID)
}
