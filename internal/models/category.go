package models

import "time"

// Category is one recognized SWTD activity class. The multiplier scales
// duration-based base points; manual categories (degrees) bypass automatic
// computation entirely.
type Category struct {
	ID                   int       `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Multiplier           float64   `db:"multiplier" json:"multiplier"`
	RequiresManualPoints bool      `db:"requires_manual_points" json:"requires_manual_points"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
