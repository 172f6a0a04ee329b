package invoicing

import (
	"fmt"

	"eventflow/internal/util"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const ContentTypePDF = "application/pdf"

// Document is the data printed on an invoice.
type Document struct {
	InvoiceID     int64
	Period        Period
	ClientName    string
	ClientAddress string
	Lines         []Line
	Total         float64
}

type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// Column widths on a 38 unit grid: 25/85/20/25/35 mm of a 190 mm body.
const (
	gridSize    = 38
	colDate     = 5
	colDesc     = 17
	colHours    = 4
	colRate     = 5
	colAmount   = 7
	colTotalLbl = colDate + colDesc + colHours + colRate
)

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

func (PDFRenderer) Render(doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithMaxGridSize(gridSize).
		WithLeftMargin(10).
		WithRightMargin(10).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRows(
		text.NewRow(12, fmt.Sprintf("INVOICE #%d", doc.InvoiceID), props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Center}),
		row.New(6),
		text.NewRow(6, "Client", props.Text{Size: 11, Style: fontstyle.Bold}),
		text.NewRow(6, doc.ClientName, props.Text{Size: 10}),
	)
	if doc.ClientAddress != "" {
		m.AddRows(text.NewRow(6, doc.ClientAddress, props.Text{Size: 10}))
	}
	m.AddRows(
		row.New(4),
		text.NewRow(6, "Period: "+doc.Period.Label(), props.Text{Size: 10}),
		row.New(6),
	)

	head := props.Text{Size: 9, Style: fontstyle.Bold, Top: 1.5, Left: 1, Right: 1}
	m.AddRows(row.New(8).Add(
		cell(colDate, "Date", head, align.Left),
		cell(colDesc, "Description", head, align.Left),
		cell(colHours, "Hours", head, align.Right),
		cell(colRate, "Rate", head, align.Right),
		cell(colAmount, "Amount", head, align.Right),
	))

	body := props.Text{Size: 9, Top: 1.5, Left: 1, Right: 1}
	for _, l := range doc.Lines {
		m.AddRows(row.New(7).Add(
			cell(colDate, l.Date.String(), body, align.Left),
			cell(colDesc, l.Description, body, align.Left),
			cell(colHours, util.FormatDecimal(l.Hours), body, align.Right),
			cell(colRate, util.FormatDecimal(l.Rate), body, align.Right),
			cell(colAmount, util.FormatAmount(util.Round2(l.Amount)), body, align.Right),
		))
	}

	m.AddRows(row.New(8).Add(
		cell(colTotalLbl, "Total (excl. tax):", head, align.Right),
		cell(colAmount, util.FormatAmount(doc.Total), head, align.Right),
	))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", doc.InvoiceID, err)
	}
	return out.GetBytes(), nil
}

func cell(size int, value string, p props.Text, a align.Type) core.Col {
	p.Align = a
	return col.New(size).Add(text.New(value, p)).WithStyle(&props.Cell{BorderType: border.Full})
}
