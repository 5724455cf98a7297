package entity

import "time"

// RecertificationHistory fila de auditoría inmutable por cada extensión de vencimiento.
type RecertificationHistory struct {
	ID            string
	BatchID       string
	OldExpiry     time.Time
	NewExpiry     time.Time
	ExtendedDays  int
	RecertifiedBy string
	RecertifiedAt time.Time
	Reason        string
}
