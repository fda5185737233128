package models

// Offering is the subject offering an assignment belongs to. Rows are owned
// by the term-planning module; this service reads them for context and for
// the per-bucket marks ceilings used by the scaling calculator.
type Offering struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	AcademicYear string  `gorm:"size:16;not null" json:"academic_year"`
	DegreeCode   string  `gorm:"size:32;not null" json:"degree_code"`
	ProgramCode  string  `gorm:"size:32" json:"program_code"`
	BranchCode   string  `gorm:"size:32" json:"branch_code"`
	Year         int     `gorm:"not null" json:"year"`
	Term         int     `gorm:"not null" json:"term"`
	SubjectCode  string  `gorm:"size:32;not null" json:"subject_code"`
	SubjectName  string  `gorm:"size:255" json:"subject_name"`
	InternalMax  float64 `gorm:"not null" json:"internal_max"`
	ExternalMax  float64 `gorm:"not null" json:"external_max"`
	Status       string  `gorm:"size:16;not null;default:active" json:"status"`
}

// BucketMax returns the configured marks ceiling for the given bucket.
func (o Offering) BucketMax(bucket Bucket) float64 {
	if bucket == BucketExternal {
		return o.ExternalMax
	}
	return o.InternalMax
}
