package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/diewo77/go-proposals/internal/models"
)

const proposalHTMLTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8" />
  <title>Orçamento {{.P.Number}}</title>
  {{if .Opts.WebFont}}<link rel="stylesheet" href="https://fonts.googleapis.com/css2?family=Inter:wght@400;800;900&display=swap" />{{end}}
  <style>
    body { font-family: 'Inter', 'Helvetica Neue', Arial, sans-serif; margin: 0; padding: 0; background: #fff; color: #1a1a1a; }
    * { -webkit-print-color-adjust: exact !important; print-color-adjust: exact !important; box-sizing: border-box; }
    .header { background: #000; padding: 40px; color: #fff; text-align: center; border-bottom: 8px solid #facc15; }
    .header h1 { margin: 0; font-size: 42px; font-weight: 900; letter-spacing: -2px; font-style: italic; }
    .header .sub { color: #facc15; text-transform: uppercase; letter-spacing: 4px; font-size: 10px; font-weight: 800; margin-top: 5px; }
    .content { padding: 40px; }
    .section-title { font-weight: 900; text-transform: uppercase; font-size: 12px; color: #facc15; background: #000; display: inline-block; padding: 4px 12px; border-radius: 4px; margin: 30px 0 15px; }
    .client-box { background: #f8fafc; padding: 25px; border-radius: 20px; border: 1px solid #e2e8f0; margin-bottom: 30px; display: flex; justify-content: space-between; align-items: flex-start; }
    .client-name { font-size: 20px; font-weight: 900; text-transform: uppercase; color: #000; }
    .muted { font-size: 12px; color: #64748b; margin-top: 5px; }
    .item-table { width: 100%; border-collapse: collapse; margin-top: 10px; }
    .item-table th { background: #000; color: #fff; padding: 12px; text-align: left; font-size: 10px; text-transform: uppercase; }
    .item-table td { padding: 12px; border: 1px solid #eee; font-size: 11px; }
    .item-table td.desc { white-space: pre-wrap; color: #333; }
    .item-table .qty { width: 80px; text-align: center; }
    .item-table .amount { width: 150px; text-align: right; font-weight: bold; color: #000; }
    .total-row { background: #facc15; font-weight: 900; font-size: 20px; text-align: right; padding: 20px; border-radius: 12px; margin-top: 20px; }
    .terms { display: flex; gap: 40px; margin-top: 40px; }
    .terms .list { font-size: 12px; line-height: 1.6; }
    .stamp { text-align: right; margin-top: 40px; }
    .stamp-badge { background: #000; color: #fff; display: inline-block; padding: 15px 25px; border-radius: 20px; border-bottom: 4px solid #facc15; }
    .stamp-number { font-size: 20px; font-weight: 900; font-style: italic; }
    .footer { padding: 30px; text-align: center; font-size: 10px; color: #64748b; border-top: 1px solid #e2e8f0; margin-top: 50px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>{{.C.Name}}</h1>
    {{if .C.Tagline}}<div class="sub">{{.C.Tagline}}</div>{{end}}
  </div>
  <div class="content">
    <div class="section-title">Dados do Cliente</div>
    <div class="client-box">
      <div>
        <div class="client-name">{{.P.Client}}</div>
        <div class="muted">A/C: {{or .P.Contact "---"}}</div>
        {{if .P.Salesperson}}<div class="muted">Vendedor: {{.P.Salesperson}}</div>{{end}}
      </div>
      <div style="text-align: right;">
        <div style="font-weight: 800; font-size: 14px;">{{.P.Phone}}</div>
        <div class="muted" style="max-width: 250px;">{{.P.Address}}</div>
      </div>
    </div>
    <table class="item-table">
      <thead>
        <tr>
          <th>Descrição do Serviço / Produto</th>
          <th class="qty">Qtd</th>
          <th class="amount">Total</th>
        </tr>
      </thead>
      <tbody>
        {{range .P.Items}}
        <tr>
          <td class="desc">{{.Description}}</td>
          <td class="qty">{{quantity .Quantity}}</td>
          <td class="amount">{{money .LineTotal}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    <div class="total-row">TOTAL DO INVESTIMENTO: {{money .P.Total}}</div>
    <div class="terms">
      <div style="flex: 1;">
        <div class="section-title">Condições Gerais</div>
        <div class="list">
          • Prazo: {{.P.DeliveryTerms}}<br>
          • Pagamento: {{.P.PaymentTerms}}<br>
          • Validade: {{.C.ValidityDays}} dias corridos
        </div>
      </div>
      <div class="stamp">
        <div class="stamp-badge">
          <div class="stamp-number">{{.P.Number}}</div>
          <div style="font-size: 11px; opacity: 0.7; margin-top: 4px;">Data: {{.P.Date}}</div>
        </div>
      </div>
    </div>
  </div>
  <div class="footer">
    <strong>{{.C.LegalName}}{{if .C.CNPJ}} | CNPJ: {{.C.CNPJ}}{{end}}</strong><br>
    {{.C.Address}}{{if .C.Phone}} • {{.C.Phone}}{{end}}
  </div>
  {{if .Opts.AutoPrint}}<script>window.onload = function () { setTimeout(function () { window.print(); }, 500); };</script>{{end}}
</body>
</html>
`

// HTMLOptions tweak the printable page.
type HTMLOptions struct {
	// AutoPrint opens the browser print dialog once the page has loaded.
	AutoPrint bool
	// WebFont links the Inter font; offline viewers fall back to Arial.
	WebFont bool
}

type HTMLRenderer struct {
	tpl     *template.Template
	company models.Company
	opts    HTMLOptions
}

func NewHTMLRenderer(company models.Company, opts HTMLOptions) *HTMLRenderer {
	funcs := template.FuncMap{
		"money":    Money,
		"quantity": Quantity,
	}
	return &HTMLRenderer{
		tpl:     template.Must(template.New("proposal").Funcs(funcs).Parse(proposalHTMLTemplate)),
		company: withCompanyDefaults(company),
		opts:    opts,
	}
}

// Render builds the printable page. p is taken by value and never modified.
func (r *HTMLRenderer) Render(p models.Proposal) (Document, error) {
	var buf bytes.Buffer
	data := struct {
		P    models.Proposal
		C    models.Company
		Opts HTMLOptions
	}{P: p, C: r.company, Opts: r.opts}
	if err := r.tpl.Execute(&buf, data); err != nil {
		return Document{}, fmt.Errorf("render proposal %s: %w", p.Number, err)
	}
	return Document{
		Filename:    Filename(p.Number, "html"),
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func withCompanyDefaults(c models.Company) models.Company {
	if c.Name == "" {
		c.Name = "RAIMUNDIX"
	}
	if c.LegalName == "" {
		c.LegalName = c.Name
	}
	if c.ValidityDays <= 0 {
		c.ValidityDays = 10
	}
	return c
}
