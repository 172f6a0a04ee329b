package prestation

import (
	"context"
	"testing"
	"time"

	"eventflow/internal/apperr"
	"eventflow/internal/metrics"
	"eventflow/internal/models"
	"eventflow/internal/testfixtures"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db      *gorm.DB
	svc     *Service
	m       *metrics.Metrics
	user    models.User
	admin   models.User
	client  models.Client
	project models.Project
}

func setup(t *testing.T) env {
	t.Helper()
	db := testfixtures.OpenDB(t)
	m := metrics.New()
	client := testfixtures.Client(t, db, "Acme Events", testfixtures.Float(45))
	return env{
		db:      db,
		svc:     New(db, zap.NewNop().Sugar(), m),
		m:       m,
		user:    testfixtures.User(t, db, "collab@eventflow.test", models.RoleCollaborator, models.UserValidated),
		admin:   testfixtures.User(t, db, "admin@eventflow.test", models.RoleAdmin, models.UserValidated),
		client:  client,
		project: testfixtures.Project(t, db, client.ID, "Spring Gala"),
	}
}

func (e env) input(start, end models.ClockTime) CreateInput {
	return CreateInput{
		Date:      models.NewDate(2024, time.March, 14),
		Start:     start,
		End:       end,
		ClientID:  e.client.ID,
		ProjectID: e.project.ID,
	}
}

func TestCreate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	p, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(9, 0), models.NewClockTime(17, 0)))
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	require.Equal(t, models.PrestationPending, p.Status)
	require.Nil(t, p.AppliedRate)
	require.InDelta(t, 8.0, *p.Hours, 1e-9)

	overnight, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(22, 0), models.NewClockTime(2, 0)))
	require.NoError(t, err)
	require.InDelta(t, 4.0, *overnight.Hours, 1e-9)

	zero, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(10, 0), models.NewClockTime(10, 0)))
	require.NoError(t, err)
	require.Equal(t, 0.0, *zero.Hours)

	require.Equal(t, 3.0, testutil.ToFloat64(e.m.PrestationsCreated))

	var stored models.Prestation
	require.NoError(t, e.db.First(&stored, p.ID).Error)
	require.Equal(t, models.NewDate(2024, time.March, 14), stored.Date)
	require.Equal(t, models.NewClockTime(17, 0), *stored.End)
}

func TestCreateInvalidReference(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	in := e.input(models.NewClockTime(9, 0), models.NewClockTime(12, 0))
	in.ProjectID = 9999
	_, err := e.svc.Create(ctx, e.user.ID, in)
	require.ErrorIs(t, err, apperr.ErrInvalidReference)

	other := testfixtures.Client(t, e.db, "Other", nil)
	in = e.input(models.NewClockTime(9, 0), models.NewClockTime(12, 0))
	in.ClientID = other.ID
	_, err = e.svc.Create(ctx, e.user.ID, in)
	require.ErrorIs(t, err, apperr.ErrInvalidReference)

	in = e.input(models.NewClockTime(9, 0), models.NewClockTime(12, 0))
	_, err = e.svc.Create(ctx, "00000000-0000-0000-0000-000000000000", in)
	require.ErrorIs(t, err, apperr.ErrInvalidReference)

	var n int64
	require.NoError(t, e.db.Model(&models.Prestation{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestEditRecomputesHours(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(9, 0), models.NewClockTime(17, 0)))
	require.NoError(t, err)

	d, err := e.svc.Edit(ctx, p.ID, Patch{End: testfixtures.Clock(18, 30)})
	require.NoError(t, err)
	require.InDelta(t, 9.5, *d.Hours, 1e-9)
	require.Equal(t, models.NewClockTime(9, 0), *d.Start)
	require.Equal(t, "Acme Events", *d.ClientNom)
	require.Equal(t, "Spring Gala", *d.ProjectNom)
	require.Equal(t, "Doe", *d.CollaborateurNom)
	require.Equal(t, "Jane", *d.CollaborateurPrenom)

	comment := "checked with site manager"
	d, err = e.svc.Edit(ctx, p.ID, Patch{AdminComment: &comment})
	require.NoError(t, err)
	require.InDelta(t, 9.5, *d.Hours, 1e-9)
	require.Equal(t, comment, *d.AdminComment)
	require.Equal(t, models.PrestationPending, d.Status)

	_, err = e.svc.Edit(ctx, p.ID, Patch{Start: testfixtures.Clock(18, 30)})
	require.ErrorIs(t, err, apperr.ErrInvalidDuration)

	_, err = e.svc.Edit(ctx, 9999, Patch{AdminComment: &comment})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEditClearsHoursWhenOneBoundUnknown(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(9, 0), models.NewClockTime(17, 0)))
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&models.Prestation{}).Where("id = ?", p.ID).
		Updates(map[string]any{"heure_debut": nil}).Error)

	d, err := e.svc.Edit(ctx, p.ID, Patch{End: testfixtures.Clock(16, 0)})
	require.NoError(t, err)
	require.Nil(t, d.Hours)
	require.Nil(t, d.Start)
}

func TestEditKeepsFrozenRate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(9, 0), models.NewClockTime(17, 0)))
	require.NoError(t, err)
	_, err = e.svc.Validate(ctx, p.ID, e.admin.ID)
	require.NoError(t, err)

	d, err := e.svc.Edit(ctx, p.ID, Patch{Start: testfixtures.Clock(8, 0)})
	require.NoError(t, err)
	require.Equal(t, models.PrestationValidated, d.Status)
	require.InDelta(t, 45.0, *d.AppliedRate, 1e-9)
	require.InDelta(t, 9.0, *d.Hours, 1e-9)
}

func TestValidate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(9, 0), models.NewClockTime(17, 0)))
	require.NoError(t, err)

	v, err := e.svc.Validate(ctx, p.ID, e.admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.PrestationValidated, v.Status)
	require.InDelta(t, 45.0, *v.AppliedRate, 1e-9)
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.PrestationsValidated))

	// later rate changes do not reach validated rows
	require.NoError(t, e.db.Model(&models.Client{}).Where("id = ?", e.client.ID).Update("tarif_horaire", 60.0).Error)
	var stored models.Prestation
	require.NoError(t, e.db.First(&stored, p.ID).Error)
	require.InDelta(t, 45.0, *stored.AppliedRate, 1e-9)

	_, err = e.svc.Validate(ctx, p.ID, e.admin.ID)
	require.ErrorIs(t, err, apperr.ErrNotPending)

	_, err = e.svc.Validate(ctx, 9999, e.admin.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	var logs []models.AuditLog
	require.NoError(t, e.db.Where("action = ?", "PRESTATION_VALIDATE").Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, e.admin.ID, *logs[0].UserID)
}

func TestValidateMissingRate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	norate := testfixtures.Client(t, e.db, "No Rate", nil)
	project := testfixtures.Project(t, e.db, norate.ID, "Booth")

	in := e.input(models.NewClockTime(9, 0), models.NewClockTime(11, 0))
	in.ClientID, in.ProjectID = norate.ID, project.ID
	p, err := e.svc.Create(ctx, e.user.ID, in)
	require.NoError(t, err)

	_, err = e.svc.Validate(ctx, p.ID, e.admin.ID)
	require.ErrorIs(t, err, apperr.ErrMissingRate)

	var stored models.Prestation
	require.NoError(t, e.db.First(&stored, p.ID).Error)
	require.Equal(t, models.PrestationPending, stored.Status)
	require.Nil(t, stored.AppliedRate)
}

func TestListPendingOrderedByDate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	later := e.input(models.NewClockTime(9, 0), models.NewClockTime(10, 0))
	later.Date = models.NewDate(2024, time.April, 2)
	_, err := e.svc.Create(ctx, e.user.ID, later)
	require.NoError(t, err)

	earlier := e.input(models.NewClockTime(9, 0), models.NewClockTime(10, 0))
	earlier.Date = models.NewDate(2024, time.February, 29)
	first, err := e.svc.Create(ctx, e.user.ID, earlier)
	require.NoError(t, err)

	done, err := e.svc.Create(ctx, e.user.ID, e.input(models.NewClockTime(9, 0), models.NewClockTime(10, 0)))
	require.NoError(t, err)
	_, err = e.svc.Validate(ctx, done.ID, e.admin.ID)
	require.NoError(t, err)

	list, err := e.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID)
	require.Equal(t, models.NewDate(2024, time.February, 29), list[0].Date)

	mine, err := e.svc.ListForUser(ctx, e.user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
}

func TestToDetail(t *testing.T) {
	nom, client := "Doe", "Acme"
	d := toDetail(detailRow{
		ID:               7,
		DatePrestation:   models.NewDate(2024, time.January, 31),
		StatutValidation: models.PrestationPending,
		UserNom:          &nom,
		ClientNom:        &client,
	})
	require.Equal(t, int64(7), d.ID)
	require.Equal(t, "Doe", *d.CollaborateurNom)
	require.Nil(t, d.CollaborateurPrenom)
	require.Nil(t, d.ProjectNom)
	require.Equal(t, "Acme", *d.ClientNom)
	require.Equal(t, models.PrestationPending, d.Status)
}
