package prestation

import (
	"context"
	"time"

	"eventflow/internal/apperr"
	"eventflow/internal/models"

	"gorm.io/gorm"
)

// Detail is a prestation with the names an admin needs to review it.
type Detail struct {
	models.Prestation
	CollaborateurNom    *string `json:"collaborateur_nom"`
	CollaborateurPrenom *string `json:"collaborateur_prenom"`
	ClientNom           *string `json:"client_nom"`
	ProjectNom          *string `json:"project_nom"`
}

// detailRow is the flat shape of the joined query.
type detailRow struct {
	ID                  int64
	UserID              string
	ClientID            int64
	ProjectID           int64
	DatePrestation      models.Date
	HeureDebut          *models.ClockTime
	HeureFin            *models.ClockTime
	HeuresCalculees     *float64
	Adresse             *string
	StatutValidation    string
	TarifHoraireUtilise *float64
	AdminComment        *string
	CreatedAt           time.Time
	UserNom             *string
	UserPrenom          *string
	ClientNom           *string
	ProjectNom          *string
}

func toDetail(r detailRow) Detail {
	return Detail{
		Prestation: models.Prestation{
			ID:           r.ID,
			UserID:       r.UserID,
			ClientID:     r.ClientID,
			ProjectID:    r.ProjectID,
			Date:         r.DatePrestation,
			Start:        r.HeureDebut,
			End:          r.HeureFin,
			Hours:        r.HeuresCalculees,
			Adresse:      r.Adresse,
			Status:       r.StatutValidation,
			AppliedRate:  r.TarifHoraireUtilise,
			AdminComment: r.AdminComment,
			CreatedAt:    r.CreatedAt,
		},
		CollaborateurNom:    r.UserNom,
		CollaborateurPrenom: r.UserPrenom,
		ClientNom:           r.ClientNom,
		ProjectNom:          r.ProjectNom,
	}
}

func (s *Service) detailQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("prestations AS p").
		Select(`p.id, p.user_id, p.client_id, p.project_id, p.date_prestation,
			p.heure_debut, p.heure_fin, p.heures_calculees, p.adresse,
			p.statut_validation, p.tarif_horaire_utilise, p.admin_comment, p.created_at,
			u.nom AS user_nom, u.prenom AS user_prenom,
			c.nom AS client_nom, pr.nom AS project_nom`).
		Joins("JOIN users u ON u.id = p.user_id").
		Joins("JOIN clients c ON c.id = p.client_id").
		Joins("LEFT JOIN projects pr ON pr.id = p.project_id")
}

func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	var rows []detailRow
	if err := s.detailQuery(ctx).Where("p.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return Detail{}, apperr.Classify(err, "prestation")
	}
	if len(rows) == 0 {
		return Detail{}, apperr.New(apperr.KindNotFound, "prestation %d not found", id)
	}
	return toDetail(rows[0]), nil
}

// ListPending returns pending prestations, oldest service date first.
func (s *Service) ListPending(ctx context.Context) ([]Detail, error) {
	var rows []detailRow
	err := s.detailQuery(ctx).
		Where("p.statut_validation = ?", models.PrestationPending).
		Order("p.date_prestation ASC, p.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Classify(err, "prestations")
	}
	out := make([]Detail, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDetail(r))
	}
	return out, nil
}

// ListForUser returns the sessions logged by userID, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Detail, error) {
	var rows []detailRow
	err := s.detailQuery(ctx).
		Where("p.user_id = ?", userID).
		Order("p.date_prestation DESC, p.id DESC").
		Limit(500).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Classify(err, "prestations")
	}
	out := make([]Detail, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDetail(r))
	}
	return out, nil
}
