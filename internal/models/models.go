package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaborator"

	UserPending   = "pending"
	UserValidated = "validated"
	UserRejected  = "rejected"

	PrestationPending   = "pending"
	PrestationValidated = "validated"

	InvoiceGenerated = "generated"
)

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Nom          *string   `gorm:"column:nom" json:"nom"`
	Prenom       *string   `gorm:"column:prenom" json:"prenom"`
	Role         string    `gorm:"not null;default:collaborator" json:"role"`
	Status       string    `gorm:"column:statut_validation;not null;default:pending" json:"statut_validation"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName falls back to the email when no name is on file.
func (u User) FullName() string {
	name := ""
	if u.Prenom != nil {
		name = *u.Prenom
	}
	if u.Nom != nil {
		if name != "" {
			name += " "
		}
		name += *u.Nom
	}
	if name == "" {
		return u.Email
	}
	return name
}

type Client struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Nom              string    `gorm:"column:nom;not null" json:"nom"`
	Adresse          *string   `gorm:"column:adresse" json:"adresse"`
	EmailFacturation *string   `gorm:"column:email_facturation" json:"email_facturation"`
	Telephone        *string   `gorm:"column:telephone" json:"telephone"`
	TarifHoraire     *float64  `gorm:"column:tarif_horaire" json:"tarif_horaire"`
	NumeroTVA        *string   `gorm:"column:numero_tva" json:"numero_tva"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Project struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Nom         string    `gorm:"column:nom;not null" json:"nom"`
	Description *string   `json:"description"`
	ClientID    int64     `gorm:"not null;index" json:"client_id"`
	Client      *Client   `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Prestation is one work session logged by a collaborator. Hours is always
// derived from the date and the two times.
type Prestation struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string     `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	ClientID     int64      `gorm:"not null;index" json:"client_id"`
	Client       *Client    `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"-"`
	ProjectID    int64      `gorm:"not null;index" json:"project_id"`
	Project      *Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:RESTRICT" json:"-"`
	Date         Date       `gorm:"column:date_prestation;type:date;not null;index" json:"date_prestation"`
	Start        *ClockTime `gorm:"column:heure_debut;type:time" json:"heure_debut"`
	End          *ClockTime `gorm:"column:heure_fin;type:time" json:"heure_fin"`
	Hours        *float64   `gorm:"column:heures_calculees" json:"heures_calculees"`
	Adresse      *string    `gorm:"column:adresse" json:"adresse"`
	Status       string     `gorm:"column:statut_validation;not null;default:pending;index" json:"statut_validation"`
	AppliedRate  *float64   `gorm:"column:tarif_horaire_utilise" json:"tarif_horaire_utilise"`
	AdminComment *string    `gorm:"column:admin_comment" json:"admin_comment"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Invoice is unique per (client, month, year); the index backs the
// conflict-ignoring insert used by the generator.
type Invoice struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID  int64     `gorm:"not null;uniqueIndex:idx_invoice_period" json:"client_id"`
	Client    *Client   `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"-"`
	Month     int       `gorm:"column:mois;not null;uniqueIndex:idx_invoice_period" json:"mois"`
	Year      int       `gorm:"column:annee;not null;uniqueIndex:idx_invoice_period" json:"annee"`
	Total     float64   `gorm:"column:montant_total;not null" json:"montant_total"`
	Status    string    `gorm:"column:statut;not null" json:"statut"`
	PDFURL    *string   `gorm:"column:lien_pdf" json:"lien_pdf"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every table owned by the service, in migration order.
func All() []any {
	return []any{&User{}, &Client{}, &Project{}, &Prestation{}, &Invoice{}, &AuditLog{}}
}
