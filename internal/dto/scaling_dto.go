package dto

import (
	"time"

	"github.com/acadops/assignment-api/internal/models"
)

// ScaledMark pairs a recorded raw mark with its derived scaled value.
type ScaledMark struct {
	MarkID           uint    `json:"mark_id"`
	AssignmentID     uint    `json:"assignment_id"`
	AssignmentNumber int     `json:"assignment_number"`
	AssignmentTitle  string  `json:"assignment_title"`
	StudentRollNo    string  `json:"student_roll_no"`
	RawMarks         float64 `json:"raw_marks"`
	MaxMarks         float64 `json:"max_marks"`
	ScaledMarks      float64 `json:"scaled_marks"`
}

// ScaledMarksResponse is the full derived scaling result for one offering
// bucket. Recomputed from committed state on every read; nothing here is
// authoritative.
type ScaledMarksResponse struct {
	OfferingID    uint          `json:"offering_id"`
	Bucket        models.Bucket `json:"bucket"`
	BucketMax     float64       `json:"bucket_max"`
	RawTotal      float64       `json:"raw_total"`
	ScalingFactor float64       `json:"scaling_factor"`
	// Undefined is set when no published assignment contributes raw marks;
	// the factor is then held at 1.0 instead of dividing by zero.
	Undefined  bool         `json:"undefined"`
	Marks      []ScaledMark `json:"marks"`
	ComputedAt time.Time    `json:"computed_at"`
	CacheHit   bool         `json:"cache_hit"`
}
