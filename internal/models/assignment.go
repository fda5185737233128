package models

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of an assignment.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusPublished   Status = "published"
	StatusArchived    Status = "archived"
	StatusDeactivated Status = "deactivated"
)

// Visibility is the student-facing visibility state. It advances forward only.
type Visibility string

const (
	VisibilityHidden           Visibility = "Hidden"
	VisibilityAccepting        Visibility = "Visible_Accepting"
	VisibilityClosed           Visibility = "Closed"
	VisibilityResultsPublished Visibility = "Results_Published"
)

// Bucket is the grading category an assignment counts towards.
type Bucket string

const (
	BucketInternal Bucket = "Internal"
	BucketExternal Bucket = "External"
)

// Results publish modes.
const (
	ResultsModeMarksAndRubrics = "marks_and_rubrics"
	ResultsModePassFailOnly    = "pass_fail_only"
	ResultsModeGradePattern    = "grade_pattern"
)

// Assignment is one gradable item scoped to a subject offering.
// (offering_id, bucket, number) is unique.
type Assignment struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	OfferingID uint `gorm:"not null;index;uniqueIndex:idx_assignments_offering_bucket_number,priority:1" json:"offering_id"`

	// Offering context, denormalized for list queries.
	AcademicYear string `gorm:"size:16;not null" json:"academic_year"`
	DegreeCode   string `gorm:"size:32;not null" json:"degree_code"`
	ProgramCode  string `gorm:"size:32" json:"program_code"`
	BranchCode   string `gorm:"size:32" json:"branch_code"`
	Year         int    `gorm:"not null" json:"year"`
	Term         int    `gorm:"not null" json:"term"`
	SubjectCode  string `gorm:"size:32;not null" json:"subject_code"`

	Number      int    `gorm:"not null;uniqueIndex:idx_assignments_offering_bucket_number,priority:3" json:"number"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Bucket       Bucket    `gorm:"size:16;not null;uniqueIndex:idx_assignments_offering_bucket_number,priority:2" json:"bucket"`
	MaxMarks     float64   `gorm:"not null" json:"max_marks"`
	DueAt        time.Time `gorm:"not null;index" json:"due_at"`
	GraceMinutes int       `gorm:"not null;default:15" json:"grace_minutes"`

	SubmissionRules  datatypes.JSONType[SubmissionRules]  `json:"submission_rules"`
	LatePolicy       datatypes.JSONType[LatePolicy]       `json:"late_policy"`
	ExtensionPolicy  datatypes.JSONType[ExtensionPolicy]  `json:"extension_policy"`
	GroupPolicy      datatypes.JSONType[GroupPolicy]      `json:"group_policy"`
	MentoringPolicy  datatypes.JSONType[MentoringPolicy]  `json:"mentoring_policy"`
	PlagiarismPolicy datatypes.JSONType[PlagiarismPolicy] `json:"plagiarism_policy"`
	DropPolicy       datatypes.JSONType[DropPolicy]       `json:"drop_policy"`

	Status             Status     `gorm:"size:16;not null;default:draft;index" json:"status"`
	Visibility         Visibility `gorm:"size:32;not null;default:Hidden" json:"visibility"`
	ResultsPublishMode string     `gorm:"size:32;not null;default:marks_and_rubrics" json:"results_publish_mode"`

	// Excluded assignments do not count towards bucket scaling totals.
	Excluded bool `gorm:"not null;default:false" json:"excluded"`

	PublishedAt *time.Time `json:"published_at"`
	PublishedBy string     `gorm:"size:64" json:"published_by"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `gorm:"size:64" json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `gorm:"size:64" json:"updated_by"`

	COMappings []COMapping        `gorm:"constraint:OnDelete:CASCADE" json:"co_mappings,omitempty"`
	Rubrics    []RubricAttachment `gorm:"constraint:OnDelete:CASCADE" json:"rubrics,omitempty"`
	Evaluators []Evaluator        `gorm:"constraint:OnDelete:CASCADE" json:"evaluators,omitempty"`
	Groups     []Group            `gorm:"constraint:OnDelete:CASCADE" json:"groups,omitempty"`
}

// IsTerminal reports whether the assignment can no longer change status.
func (a Assignment) IsTerminal() bool {
	return a.Status == StatusArchived || a.Status == StatusDeactivated
}

// CountsTowardsScaling reports whether the assignment contributes to the
// bucket raw total used by the scaling calculator.
func (a Assignment) CountsTowardsScaling() bool {
	return a.Status == StatusPublished && !a.Excluded
}

// IsPastDue returns true when the deadline (plus grace) has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueAt.Add(time.Duration(a.GraceMinutes) * time.Minute))
}
