package invoicing

import (
	"context"
	"time"

	"eventflow/internal/apperr"
)

type InvoiceSummary struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	ClientNom    string    `json:"client_nom"`
	Mois         int       `json:"mois"`
	Annee        int       `json:"annee"`
	MontantTotal float64   `json:"montant_total"`
	Statut       string    `json:"statut"`
	LienPDF      *string   `json:"lien_pdf"`
	CreatedAt    time.Time `json:"created_at"`
}

// List returns the invoices of a period, including those still missing a
// document link, for reconciliation.
func (g *Generator) List(ctx context.Context, month, year int) ([]InvoiceSummary, error) {
	p, err := NewPeriod(month, year, g.now())
	if err != nil {
		return nil, err
	}
	out := []InvoiceSummary{}
	err = g.db.WithContext(ctx).
		Table("invoices AS i").
		Select(`i.id, i.client_id, c.nom AS client_nom, i.mois, i.annee,
			i.montant_total, i.statut, i.lien_pdf, i.created_at`).
		Joins("JOIN clients c ON c.id = i.client_id").
		Where("i.mois = ? AND i.annee = ?", p.Month, p.Year).
		Order("c.nom ASC, i.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Classify(err, "invoices")
	}
	return out, nil
}
