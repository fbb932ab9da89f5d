package render

import (
	"fmt"
	"unicode/utf8"

	"github.com/diewo77/go-proposals/internal/models"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	black  = &props.Color{Red: 0, Green: 0, Blue: 0}
	white  = &props.Color{Red: 255, Green: 255, Blue: 255}
	yellow = &props.Color{Red: 250, Green: 204, Blue: 21}
	slate  = &props.Color{Red: 100, Green: 116, Blue: 139}
)

// PDFRenderer lays the proposal out as an A4 PDF, fully in memory.
type PDFRenderer struct {
	company models.Company
}

func NewPDFRenderer(company models.Company) *PDFRenderer {
	return &PDFRenderer{company: withCompanyDefaults(company)}
}

// Render returns the PDF bytes. p is taken by value and never modified.
func (r *PDFRenderer) Render(p models.Proposal) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(12).
		WithRightMargin(12).
		WithTopMargin(10).
		Build()
	m := maroto.New(cfg)

	m.AddRows(r.header()...)
	m.AddRows(r.client(p)...)
	m.AddRows(r.items(p)...)
	m.AddRows(r.terms(p)...)
	m.AddRows(r.footer()...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf %s: %w", p.Number, err)
	}
	return doc.GetBytes(), nil
}

// Document wraps Render for callers that need a filename.
func (r *PDFRenderer) Document(p models.Proposal) (Document, error) {
	body, err := r.Render(p)
	if err != nil {
		return Document{}, err
	}
	return Document{Filename: Filename(p.Number, "pdf"), ContentType: "application/pdf", Body: body}, nil
}

func (r *PDFRenderer) header() []core.Row {
	band := &props.Cell{BackgroundColor: black}
	rows := []core.Row{
		row.New(18).Add(
			text.NewCol(12, r.company.Name, props.Text{Top: 4, Size: 26, Style: fontstyle.BoldItalic, Align: align.Center, Color: white}),
		).WithStyle(band),
	}
	if r.company.Tagline != "" {
		rows = append(rows, row.New(8).Add(
			text.NewCol(12, r.company.Tagline, props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Color: yellow}),
		).WithStyle(band))
	}
	rows = append(rows, row.New(2).Add(col.New(12)).WithStyle(&props.Cell{BackgroundColor: yellow}))
	return rows
}

func (r *PDFRenderer) client(p models.Proposal) []core.Row {
	contact := p.Contact
	if contact == "" {
		contact = "---"
	}
	rows := []core.Row{
		sectionTitle("Dados do Cliente"),
		row.New(8).Add(
			text.NewCol(7, p.Client, props.Text{Size: 13, Style: fontstyle.Bold}),
			text.NewCol(5, p.Phone, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		),
		row.New(6).Add(
			text.NewCol(7, "A/C: "+contact, props.Text{Size: 9, Color: slate}),
			text.NewCol(5, p.Address, props.Text{Size: 8, Color: slate, Align: align.Right}),
		),
	}
	if p.Salesperson != "" {
		rows = append(rows, text.NewRow(6, "Vendedor: "+p.Salesperson, props.Text{Size: 9, Color: slate}))
	}
	return rows
}

func (r *PDFRenderer) items(p models.Proposal) []core.Row {
	head := props.Text{Top: 2, Size: 8, Style: fontstyle.Bold, Color: white}
	rows := []core.Row{
		row.New(4),
		row.New(8).Add(
			text.NewCol(8, "DESCRIÇÃO DO SERVIÇO / PRODUTO", head),
			text.NewCol(1, "QTD", withAlign(head, align.Center)),
			text.NewCol(3, "TOTAL", withAlign(head, align.Right)),
		).WithStyle(&props.Cell{BackgroundColor: black}),
	}
	for _, item := range p.Items {
		cell := props.Text{Top: 2, Size: 9}
		rows = append(rows, row.New(itemHeight(item.Description)).Add(
			text.NewCol(8, item.Description, cell),
			text.NewCol(1, Quantity(item.Quantity), withAlign(cell, align.Center)),
			text.NewCol(3, Money(item.LineTotal), props.Text{Top: 2, Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		))
	}
	rows = append(rows,
		row.New(4),
		row.New(12).Add(
			text.NewCol(12, "TOTAL DO INVESTIMENTO: "+Money(p.Total()), props.Text{Top: 3, Right: 3, Size: 14, Style: fontstyle.Bold, Align: align.Right}),
		).WithStyle(&props.Cell{BackgroundColor: yellow}),
	)
	return rows
}

func (r *PDFRenderer) terms(p models.Proposal) []core.Row {
	body := props.Text{Size: 9}
	return []core.Row{
		sectionTitle("Condições Gerais"),
		row.New(5).Add(
			text.NewCol(8, "• Prazo: "+p.DeliveryTerms, body),
			text.NewCol(4, p.Number, props.Text{Size: 14, Style: fontstyle.BoldItalic, Align: align.Right}),
		),
		row.New(5).Add(
			text.NewCol(8, "• Pagamento: "+p.PaymentTerms, body),
			text.NewCol(4, "Data: "+p.Date, props.Text{Size: 8, Color: slate, Align: align.Right}),
		),
		text.NewRow(5, fmt.Sprintf("• Validade: %d dias corridos", r.company.ValidityDays), body),
	}
}

func (r *PDFRenderer) footer() []core.Row {
	legal := r.company.LegalName
	if r.company.CNPJ != "" {
		legal += " | CNPJ: " + r.company.CNPJ
	}
	contact := r.company.Address
	if r.company.Phone != "" {
		contact += " • " + r.company.Phone
	}
	return []core.Row{
		row.New(12),
		text.NewRow(5, legal, props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Color: slate}),
		text.NewRow(5, contact, props.Text{Size: 7, Align: align.Center, Color: slate}),
	}
}

func sectionTitle(s string) core.Row {
	return row.New(9).Add(
		text.NewCol(4, s, props.Text{Top: 2, Left: 2, Size: 9, Style: fontstyle.Bold, Color: yellow}),
	).WithStyle(&props.Cell{BackgroundColor: black})
}

func withAlign(t props.Text, a align.Type) props.Text {
	t.Align = a
	return t
}

// itemHeight estimates the row height for a wrapped description: about 70
// characters per line in the description column.
func itemHeight(desc string) float64 {
	lines := utf8.RuneCountInString(desc)/70 + 1
	return float64(lines)*4.5 + 4
}
