package models

import "time"

// RubricMode selects between a single full-weight rubric and a weighted set.
type RubricMode string

const (
	// RubricModeSingle attaches exactly one rubric at weight 100.
	RubricModeSingle RubricMode = "A"
	// RubricModeWeighted attaches one or more rubrics whose weights sum to 100.
	RubricModeWeighted RubricMode = "B"
)

// FullWeightPercent is the required total of rubric weights per assignment.
const FullWeightPercent = 100.0

// RubricAttachment links a catalog rubric to an assignment with a top-level
// weight. Owned exclusively by the assignment.
type RubricAttachment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AssignmentID  uint       `gorm:"not null;index" json:"assignment_id"`
	RubricID      uint       `gorm:"not null" json:"rubric_id"`
	Mode          RubricMode `gorm:"size:4;not null;default:A" json:"mode"`
	WeightPercent float64    `gorm:"not null;default:100" json:"weight_percent"`
	RubricVersion string     `gorm:"size:32" json:"rubric_version"`
	Sequence      int        `gorm:"not null;default:1" json:"sequence"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Rubric is catalog reference data owned by the rubric module. An empty
// DegreeCode marks a globally scoped rubric.
type Rubric struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	DegreeCode string `gorm:"size:32" json:"degree_code"`
	Version    string `gorm:"size:32" json:"version"`
}
