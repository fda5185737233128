package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradeBand maps a percentage range to a grade label.
type GradeBand struct {
	MinPercent float64 `json:"min_percent"`
	MaxPercent float64 `json:"max_percent"`
	Label      string  `json:"label"`
}

// GradePattern is a named set of grade bands attached to an assignment,
// used when results publish in grade_pattern mode.
type GradePattern struct {
	ID           uint                            `gorm:"primaryKey" json:"id"`
	AssignmentID uint                            `gorm:"not null;index" json:"assignment_id"`
	Name         string                          `gorm:"size:128;not null" json:"name"`
	Bands        datatypes.JSONType[[]GradeBand] `json:"bands"`
	IsActive     bool                            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time                       `json:"created_at"`
	CreatedBy    string                          `gorm:"size:64" json:"created_by"`
}

// GradeFor returns the label for a percentage, or empty when no band matches.
func (p GradePattern) GradeFor(percent float64) string {
	for _, band := range p.Bands.Data() {
		if percent >= band.MinPercent && percent <= band.MaxPercent {
			return band.Label
		}
	}
	return ""
}
