package models

import "time"

// Correlation bounds for CO mappings.
const (
	CorrelationMin = 0
	CorrelationMax = 3
)

// COMapping correlates an assignment with a course outcome on a 0-3 scale.
// Owned exclusively by the assignment and removed with it.
type COMapping struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_co_mapping_assignment_code,priority:1" json:"assignment_id"`
	COCode       string    `gorm:"size:16;not null;uniqueIndex:idx_co_mapping_assignment_code,priority:2" json:"co_code"`
	Correlation  int       `gorm:"not null" json:"correlation"`
	CreatedAt    time.Time `json:"created_at"`
}

// CourseOutcome is catalog reference data owned by the curriculum module.
type CourseOutcome struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OfferingID  uint   `gorm:"not null;index" json:"offering_id"`
	Code        string `gorm:"size:16;not null" json:"code"`
	Description string `gorm:"type:text" json:"description"`
}
