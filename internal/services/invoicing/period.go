package invoicing

import (
	"fmt"
	"time"

	"eventflow/internal/apperr"
	"eventflow/internal/models"
)

const minYear = 2000

// Period is a billing month.
type Period struct {
	Month int
	Year  int
}

// NewPeriod accepts months 1-12 of years 2000 through five years past now.
func NewPeriod(month, year int, now time.Time) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, apperr.New(apperr.KindInvalidPeriod, "month must be between 1 and 12, got %d", month)
	}
	if maxYear := now.Year() + 5; year < minYear || year > maxYear {
		return Period{}, apperr.New(apperr.KindInvalidPeriod, "year must be between %d and %d, got %d", minYear, maxYear, year)
	}
	return Period{Month: month, Year: year}, nil
}

func (p Period) First() models.Date {
	return models.NewDate(p.Year, time.Month(p.Month), 1)
}

// Last is the final calendar day of the month, leap years included.
func (p Period) Last() models.Date {
	return models.DateOf(time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC))
}

// Label renders the period as MM/YYYY.
func (p Period) Label() string {
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

func (p Period) lockKey() string {
	return fmt.Sprintf("invoices:%04d-%02d", p.Year, p.Month)
}

// ObjectPath is where the document of an invoice is published. Re-publishing
// the same invoice targets the same path.
func ObjectPath(p Period, clientID, invoiceID int64) string {
	return fmt.Sprintf("%04d/%02d/invoice_%04d_%02d_%d_%d.pdf", p.Year, p.Month, p.Year, p.Month, clientID, invoiceID)
}
