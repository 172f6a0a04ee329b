// Package prestation records work sessions and moves them through
// admin review: creation, edit with duration recompute, and validation
// with the client rate frozen onto the row.
package prestation

import (
	"context"
	"errors"

	"eventflow/internal/apperr"
	"eventflow/internal/metrics"
	"eventflow/internal/models"
	"eventflow/internal/services/worktime"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
	lg *zap.SugaredLogger
	m  *metrics.Metrics
}

func New(db *gorm.DB, lg *zap.SugaredLogger, m *metrics.Metrics) *Service {
	return &Service{db: db, lg: lg, m: m}
}

type CreateInput struct {
	Date      models.Date      `json:"date_prestation"`
	Start     models.ClockTime `json:"heure_debut"`
	End       models.ClockTime `json:"heure_fin"`
	ClientID  int64            `json:"client_id"`
	ProjectID int64            `json:"project_id"`
	Adresse   *string          `json:"adresse"`
}

// Patch holds the fields an admin may change. A nil field is left as is;
// clearing a field is not supported.
type Patch struct {
	Date         *models.Date      `json:"date_prestation"`
	Start        *models.ClockTime `json:"heure_debut"`
	End          *models.ClockTime `json:"heure_fin"`
	ClientID     *int64            `json:"client_id"`
	ProjectID    *int64            `json:"project_id"`
	Adresse      *string           `json:"adresse"`
	AdminComment *string           `json:"admin_comment"`
}

func (p Patch) touchesTimes() bool { return p.Start != nil || p.End != nil }

// Create stores a pending prestation for userID. A session whose bounds
// are equal is accepted with zero hours.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (models.Prestation, error) {
	if in.Date.IsZero() {
		return models.Prestation{}, apperr.New(apperr.KindInvalidInput, "date_prestation is required")
	}
	if in.ClientID <= 0 || in.ProjectID <= 0 {
		return models.Prestation{}, apperr.New(apperr.KindInvalidReference, "client_id and project_id are required")
	}
	hours := worktime.Hours(in.Date, in.Start, in.End)
	if hours <= 0 && !in.Start.Equal(in.End) {
		return models.Prestation{}, apperr.New(apperr.KindInvalidDuration,
			"computed duration is invalid (%s to %s)", in.Start, in.End)
	}

	db := s.db.WithContext(ctx)
	if err := s.checkProject(db, in.ClientID, in.ProjectID); err != nil {
		return models.Prestation{}, err
	}

	start, end := in.Start, in.End
	p := models.Prestation{
		UserID:    userID,
		ClientID:  in.ClientID,
		ProjectID: in.ProjectID,
		Date:      in.Date,
		Start:     &start,
		End:       &end,
		Hours:     &hours,
		Adresse:   in.Adresse,
		Status:    models.PrestationPending,
	}
	if err := db.Create(&p).Error; err != nil {
		return models.Prestation{}, referenceError(err, in.ClientID, in.ProjectID)
	}
	s.m.PrestationsCreated.Inc()
	s.lg.Infow("prestation created", "id", p.ID, "user_id", userID, "client_id", p.ClientID, "hours", hours)
	return p, nil
}

// checkProject rejects a project that does not exist or belongs to another client.
func (s *Service) checkProject(db *gorm.DB, clientID, projectID int64) error {
	var project models.Project
	err := db.Select("id", "client_id").First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindInvalidReference, "project %d does not exist", projectID)
	}
	if err != nil {
		return apperr.Classify(err, "project")
	}
	if project.ClientID != clientID {
		return apperr.New(apperr.KindInvalidReference, "project %d does not belong to client %d", projectID, clientID)
	}
	return nil
}

func referenceError(err error, clientID, projectID int64) error {
	if apperr.Violation(err) == apperr.ViolationForeignKey {
		return apperr.Wrap(apperr.KindInvalidReference, err,
			"invalid reference: check that client %d and project %d exist", clientID, projectID)
	}
	return apperr.Classify(err, "prestation")
}

// Edit applies patch to prestation id. When either time is part of the
// patch the hours are recomputed from the effective bounds, or cleared
// when only one bound is known. Status and frozen rate never change here.
func (s *Service) Edit(ctx context.Context, id int64, patch Patch) (Detail, error) {
	db := s.db.WithContext(ctx)

	var cur models.Prestation
	if err := db.First(&cur, id).Error; err != nil {
		return Detail{}, apperr.Classify(err, "prestation")
	}

	updates := map[string]any{}
	date := cur.Date
	if patch.Date != nil {
		date = *patch.Date
		updates["date_prestation"] = date
	}
	if patch.Adresse != nil {
		updates["adresse"] = *patch.Adresse
	}
	if patch.AdminComment != nil {
		updates["admin_comment"] = *patch.AdminComment
	}

	clientID, projectID := cur.ClientID, cur.ProjectID
	if patch.ClientID != nil {
		clientID = *patch.ClientID
		updates["client_id"] = clientID
	}
	if patch.ProjectID != nil {
		projectID = *patch.ProjectID
		updates["project_id"] = projectID
	}
	if patch.ClientID != nil || patch.ProjectID != nil {
		if err := s.checkProject(db, clientID, projectID); err != nil {
			return Detail{}, err
		}
	}

	if patch.touchesTimes() {
		start, end := cur.Start, cur.End
		if patch.Start != nil {
			start = patch.Start
			updates["heure_debut"] = *start
		}
		if patch.End != nil {
			end = patch.End
			updates["heure_fin"] = *end
		}
		if start != nil && end != nil && start.Equal(*end) {
			return Detail{}, apperr.New(apperr.KindInvalidDuration,
				"heure_fin must differ from heure_debut (%s)", start)
		}
		if hours := worktime.HoursOptional(date, start, end); hours != nil {
			updates["heures_calculees"] = *hours
		} else {
			updates["heures_calculees"] = nil
		}
	}

	if len(updates) > 0 {
		err := db.Model(&models.Prestation{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			return Detail{}, referenceError(err, clientID, projectID)
		}
		s.lg.Infow("prestation edited", "id", id, "fields", len(updates))
	}
	return s.Get(ctx, id)
}

// Validate freezes the client's current rate onto a pending prestation.
// The update is conditional on the pending status so a concurrent
// validation cannot apply twice.
func (s *Service) Validate(ctx context.Context, id int64, adminID string) (models.Prestation, error) {
	var out models.Prestation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Prestation
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.Classify(err, "prestation")
		}
		if p.Status != models.PrestationPending {
			return apperr.New(apperr.KindNotPending,
				"prestation %d is not awaiting validation (status: %s)", id, p.Status)
		}

		var client models.Client
		err := tx.Select("id", "tarif_horaire").First(&client, p.ClientID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Classify(err, "client")
		}
		if err != nil || client.TarifHoraire == nil {
			return apperr.New(apperr.KindMissingRate,
				"hourly rate not found for client %d of prestation %d", p.ClientID, id)
		}
		rate := *client.TarifHoraire

		res := tx.Model(&models.Prestation{}).
			Where("id = ? AND statut_validation = ?", id, models.PrestationPending).
			Updates(map[string]any{
				"statut_validation":     models.PrestationValidated,
				"tarif_horaire_utilise": rate,
			})
		if res.Error != nil {
			return apperr.Classify(res.Error, "prestation")
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindNotPending, "prestation %d was validated concurrently", id)
		}

		var uid *string
		if adminID != "" {
			uid = &adminID
		}
		if err := tx.Create(&models.AuditLog{
			UserID:   uid,
			Action:   "PRESTATION_VALIDATE",
			Metadata: models.NewJSONB(map[string]any{"prestation_id": id, "client_id": p.ClientID, "rate": rate}),
		}).Error; err != nil {
			return apperr.Classify(err, "audit log")
		}

		p.Status = models.PrestationValidated
		p.AppliedRate = &rate
		out = p
		return nil
	})
	if err != nil {
		return models.Prestation{}, err
	}
	s.m.PrestationsValidated.Inc()
	s.lg.Infow("prestation validated", "id", id, "rate", *out.AppliedRate)
	return out, nil
}
