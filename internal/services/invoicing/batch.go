// Package invoicing builds the monthly invoices: it aggregates validated
// prestations per client, inserts one invoice per client and period, and
// renders, publishes and links the invoice document.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventflow/internal/apperr"
	"eventflow/internal/lock"
	"eventflow/internal/metrics"
	"eventflow/internal/models"
	"eventflow/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stage is the last step a client reached in a batch.
type Stage string

const (
	StageAggregated        Stage = "AGGREGATED"
	StageInvoiceRowCreated Stage = "INVOICE_ROW_CREATED"
	StageDocumentRendered  Stage = "DOCUMENT_RENDERED"
	StagePublished         Stage = "PUBLISHED"
	StageLinked            Stage = "LINKED"
)

// ClientResult is the outcome of one client in a batch. Err is set when a
// step after Stage failed; Skipped is set when an invoice already existed.
type ClientResult struct {
	ClientID   int64
	ClientName string
	Total      float64
	InvoiceID  int64
	Locator    *string
	Stage      Stage
	Skipped    bool
	Err        error
}

type GeneratedInvoice struct {
	ClientID     int64   `json:"client_id"`
	ClientName   string  `json:"client_name"`
	MontantTotal float64 `json:"montant_total"`
	InvoiceID    int64   `json:"invoice_id"`
	LienPDF      *string `json:"lien_pdf"`
}

type Report struct {
	Message   string             `json:"message"`
	Generated []GeneratedInvoice `json:"generated_invoices"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Results   []ClientResult     `json:"-"`
}

type Generator struct {
	db        *gorm.DB
	lg        *zap.SugaredLogger
	renderer  Renderer
	publisher storage.Publisher
	locker    lock.Locker
	m         *metrics.Metrics
	now       func() time.Time
}

func NewGenerator(db *gorm.DB, lg *zap.SugaredLogger, renderer Renderer, publisher storage.Publisher, locker lock.Locker, m *metrics.Metrics) *Generator {
	return &Generator{
		db:        db,
		lg:        lg,
		renderer:  renderer,
		publisher: publisher,
		locker:    locker,
		m:         m,
		now:       time.Now,
	}
}

// Generate invoices every client with billable prestations in the period.
// Only an invalid period, a concurrent run or a failed read of the
// prestations fail the call; per-client failures end up in the report.
func (g *Generator) Generate(ctx context.Context, month, year int, actorID string) (Report, error) {
	period, err := NewPeriod(month, year, g.now())
	if err != nil {
		return Report{}, err
	}

	release, err := g.locker.TryAcquire(ctx, period.lockKey())
	if errors.Is(err, lock.ErrHeld) {
		return Report{}, apperr.New(apperr.KindConflict, "invoice generation for %s is already running", period.Label())
	}
	if err != nil {
		return Report{}, apperr.Wrap(apperr.KindExternalFailure, err, "acquire generation lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			g.lg.Warnw("release generation lock", "period", period.Label(), "err", err)
		}
	}()

	started := time.Now()
	defer func() { g.m.BatchDuration.Observe(time.Since(started).Seconds()) }()

	rows, err := g.loadBillable(ctx, period)
	if err != nil {
		return Report{}, err
	}
	clients := aggregate(rows, g.lg)
	if len(clients) == 0 {
		g.lg.Infow("no billable prestations", "period", period.Label())
		return Report{
			Message:   fmt.Sprintf("No validated prestations to invoice for %s.", period.Label()),
			Generated: []GeneratedInvoice{},
		}, nil
	}

	rep := Report{Generated: []GeneratedInvoice{}}
	for _, ct := range clients {
		res := g.processClient(ctx, period, ct)
		rep.Results = append(rep.Results, res)
		switch {
		case res.Skipped:
			rep.Skipped++
			g.m.InvoicesSkipped.Inc()
		case res.Err != nil:
			rep.Failed++
			g.m.ClientFailures.WithLabelValues(string(res.Stage)).Inc()
			g.lg.Errorw("client invoice incomplete", "period", period.Label(), "client_id", res.ClientID,
				"invoice_id", res.InvoiceID, "stage", res.Stage, "err", res.Err)
		}
		if res.InvoiceID != 0 && !res.Skipped {
			g.m.InvoicesGenerated.Inc()
			rep.Generated = append(rep.Generated, GeneratedInvoice{
				ClientID:     res.ClientID,
				ClientName:   res.ClientName,
				MontantTotal: res.Total,
				InvoiceID:    res.InvoiceID,
				LienPDF:      res.Locator,
			})
		}
	}
	rep.Message = fmt.Sprintf("%d invoice(s) generated for %s, %d skipped, %d with errors.",
		len(rep.Generated), period.Label(), rep.Skipped, rep.Failed)

	var uid *string
	if actorID != "" {
		uid = &actorID
	}
	if err := g.db.WithContext(ctx).Create(&models.AuditLog{
		UserID: uid,
		Action: "INVOICE_BATCH",
		Metadata: models.NewJSONB(map[string]any{
			"month": period.Month, "year": period.Year,
			"generated": len(rep.Generated), "skipped": rep.Skipped, "failed": rep.Failed,
		}),
	}).Error; err != nil {
		g.lg.Warnw("audit log", "err", err)
	}
	g.lg.Infow("invoice batch done", "period", period.Label(), "generated", len(rep.Generated),
		"skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

// processClient runs one client through the stages. Rows already written
// are kept when a later stage fails.
func (g *Generator) processClient(ctx context.Context, p Period, ct ClientTotal) ClientResult {
	res := ClientResult{ClientID: ct.ClientID, ClientName: ct.ClientName, Total: ct.Total, Stage: StageAggregated}
	db := g.db.WithContext(ctx)

	var existing int64
	err := db.Model(&models.Invoice{}).
		Where("client_id = ? AND mois = ? AND annee = ?", ct.ClientID, p.Month, p.Year).
		Count(&existing).Error
	if err != nil {
		res.Err = apperr.Classify(err, "invoice lookup")
		return res
	}
	if existing > 0 {
		res.Skipped = true
		return res
	}

	inv := models.Invoice{
		ClientID: ct.ClientID,
		Month:    p.Month,
		Year:     p.Year,
		Total:    ct.Total,
		Status:   models.InvoiceGenerated,
	}
	ins := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&inv)
	if ins.Error != nil {
		res.Err = apperr.Classify(ins.Error, "invoice")
		return res
	}
	if ins.RowsAffected == 0 {
		res.Skipped = true
		return res
	}
	res.InvoiceID = inv.ID
	res.Stage = StageInvoiceRowCreated

	address := ""
	if ct.ClientAddress != nil {
		address = *ct.ClientAddress
	}
	pdf, err := g.renderer.Render(Document{
		InvoiceID:     inv.ID,
		Period:        p,
		ClientName:    ct.ClientName,
		ClientAddress: address,
		Lines:         ct.Lines,
		Total:         ct.Total,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Stage = StageDocumentRendered

	path := ObjectPath(p, ct.ClientID, inv.ID)
	if err := g.publisher.Publish(ctx, path, pdf, ContentTypePDF); err != nil {
		res.Err = apperr.Wrap(apperr.KindExternalFailure, err, "publish %s", path)
		return res
	}
	url, err := g.publisher.Locator(path)
	if err != nil {
		res.Err = apperr.Wrap(apperr.KindExternalFailure, err, "locator %s", path)
		return res
	}
	res.Stage = StagePublished

	if err := db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("lien_pdf", url).Error; err != nil {
		res.Err = apperr.Classify(err, "invoice link")
		return res
	}
	res.Locator = &url
	res.Stage = StageLinked
	return res
}
