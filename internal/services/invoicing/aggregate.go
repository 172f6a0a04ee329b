package invoicing

import (
	"context"
	"strings"

	"eventflow/internal/apperr"
	"eventflow/internal/models"
	"eventflow/internal/util"

	"go.uber.org/zap"
)

const lineDescription = "Prestation"

// Line is one prestation's contribution to an invoice. It is never stored.
type Line struct {
	Date        models.Date
	Description string
	Hours       float64
	Rate        float64
	Amount      float64
}

// ClientTotal is everything billed to one client for a period.
type ClientTotal struct {
	ClientID      int64
	ClientName    string
	ClientAddress *string
	Lines         []Line
	Total         float64
}

type billableRow struct {
	ID                  int64
	ClientID            int64
	DatePrestation      models.Date
	HeuresCalculees     *float64
	TarifHoraireUtilise *float64
	ClientNom           *string
	ClientAdresse       *string
}

func (g *Generator) loadBillable(ctx context.Context, p Period) ([]billableRow, error) {
	var rows []billableRow
	err := g.db.WithContext(ctx).
		Table("prestations AS p").
		Select(`p.id, p.client_id, p.date_prestation, p.heures_calculees, p.tarif_horaire_utilise,
			c.nom AS client_nom, c.adresse AS client_adresse`).
		Joins("LEFT JOIN clients c ON c.id = p.client_id").
		Where("p.statut_validation = ?", models.PrestationValidated).
		Where("p.date_prestation BETWEEN ? AND ?", p.First(), p.Last()).
		Where("p.heures_calculees IS NOT NULL AND p.tarif_horaire_utilise IS NOT NULL").
		Order("p.client_id ASC, p.date_prestation ASC, p.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Classify(err, "billable prestations")
	}
	return rows, nil
}

// aggregate groups rows by client in first-seen order. Rows without a
// client name and lines with a negative amount are dropped; clients whose
// rounded total is not positive are left out.
func aggregate(rows []billableRow, lg *zap.SugaredLogger) []ClientTotal {
	var order []int64
	byClient := map[int64]*ClientTotal{}

	for _, r := range rows {
		if r.HeuresCalculees == nil || r.TarifHoraireUtilise == nil {
			continue
		}
		if r.ClientNom == nil || strings.TrimSpace(*r.ClientNom) == "" {
			lg.Warnw("skipping prestation without client name", "prestation_id", r.ID, "client_id", r.ClientID)
			continue
		}
		hours, rate := *r.HeuresCalculees, *r.TarifHoraireUtilise
		amount := hours * rate
		if amount < 0 {
			lg.Warnw("skipping prestation with negative amount", "prestation_id", r.ID, "hours", hours, "rate", rate)
			continue
		}

		ct, ok := byClient[r.ClientID]
		if !ok {
			ct = &ClientTotal{ClientID: r.ClientID, ClientName: *r.ClientNom}
			byClient[r.ClientID] = ct
			order = append(order, r.ClientID)
		}
		if ct.ClientAddress == nil && r.ClientAdresse != nil {
			ct.ClientAddress = r.ClientAdresse
		}
		ct.Total += amount
		ct.Lines = append(ct.Lines, Line{
			Date:        r.DatePrestation,
			Description: lineDescription,
			Hours:       hours,
			Rate:        rate,
			Amount:      amount,
		})
	}

	out := make([]ClientTotal, 0, len(order))
	for _, id := range order {
		ct := byClient[id]
		ct.Total = util.Round2(ct.Total)
		if ct.Total <= 0 {
			lg.Infow("skipping client with no billable amount", "client_id", id)
			continue
		}
		out = append(out, *ct)
	}
	return out
}
