package company

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID   uuid.UUID
	Name string
}

// License grants a company the right to ingest device data. Begin and End
// are calendar dates.
type License struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Begin        time.Time
	End          time.Time
	UsageBalance int64
}

// IsValid reports whether today falls inside the license and the usage
// balance is not exhausted.
func (l *License) IsValid(today time.Time) bool {
	if l == nil {
		return false
	}
	day := truncateDay(today)
	return !day.Before(truncateDay(l.Begin)) && !day.After(truncateDay(l.End)) && l.UsageBalance >= 0
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
