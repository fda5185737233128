package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// PolicySchemaVersion is the current shape version for all policy blocks.
// Stored alongside each block so older rows can be migrated deliberately.
const PolicySchemaVersion = 1

// Late policy modes.
const (
	LateModeAllowWithPenalty = "allow_with_penalty"
	LateModeNoLate           = "no_late"
	LateModeAllowUntilCutoff = "allow_until_cutoff"
)

// SubmissionRules constrains how students may submit work.
type SubmissionRules struct {
	SchemaVersion int            `json:"schema_version"`
	Types         []string       `json:"types"`
	FileUpload    FileUploadRule `json:"file_upload"`
}

// FileUploadRule configures the file-upload submission type.
type FileUploadRule struct {
	MultipleFiles bool     `json:"multiple_files"`
	MaxFileMB     int      `json:"max_file_mb"`
	AllowedTypes  []string `json:"allowed_types"`
}

// LatePolicy controls acceptance and penalties for late submissions.
type LatePolicy struct {
	SchemaVersion        int        `json:"schema_version"`
	Mode                 string     `json:"mode"`
	PenaltyPercentPerDay float64    `json:"penalty_percent_per_day"`
	PenaltyCapPercent    float64    `json:"penalty_cap_percent"`
	HardCutoffAt         *time.Time `json:"hard_cutoff_at"`
}

// ExtensionPolicy controls per-student due-date extensions.
type ExtensionPolicy struct {
	SchemaVersion                int  `json:"schema_version"`
	Allowed                      bool `json:"allowed"`
	RequireReason                bool `json:"require_reason"`
	ApprovalRequiredAfterPublish bool `json:"approval_required_after_publish"`
}

// GroupPolicy controls group work for the assignment.
type GroupPolicy struct {
	SchemaVersion int    `json:"schema_version"`
	Enabled       bool   `json:"enabled"`
	GroupingModel string `json:"grouping_model"`
	MinSize       int    `json:"min_size"`
	MaxSize       int    `json:"max_size"`
}

// MentoringPolicy controls mentor allocation.
type MentoringPolicy struct {
	SchemaVersion             int  `json:"schema_version"`
	EnabledAtSubject          bool `json:"enabled_at_subject"`
	EnabledAtAssignment       bool `json:"enabled_at_assignment"`
	MentorsFromSubjectFaculty bool `json:"mentors_from_subject_faculty"`
	MultipleMentorsPerStudent bool `json:"multiple_mentors_per_student"`
}

// PlagiarismPolicy configures similarity checking thresholds.
type PlagiarismPolicy struct {
	SchemaVersion         int     `json:"schema_version"`
	Enabled               bool    `json:"enabled"`
	WarnThresholdPercent  float64 `json:"warn_threshold_percent"`
	BlockThresholdPercent float64 `json:"block_threshold_percent"`
	ExcludeBibliography   bool    `json:"exclude_bibliography"`
}

// DropPolicy configures class-wide drops and per-student excusals.
type DropPolicy struct {
	SchemaVersion           int    `json:"schema_version"`
	ClassWideDropRequested  bool   `json:"class_wide_drop_requested"`
	ClassWideDropReason     string `json:"class_wide_drop_reason"`
	PerStudentExcuseAllowed bool   `json:"per_student_excuse_allowed"`
}

// DefaultSubmissionRules returns the rules applied when none are supplied.
func DefaultSubmissionRules() SubmissionRules {
	return SubmissionRules{
		SchemaVersion: PolicySchemaVersion,
		Types:         []string{"file_upload"},
		FileUpload: FileUploadRule{
			MultipleFiles: true,
			MaxFileMB:     100,
			AllowedTypes:  []string{"pdf", "pptx", "docx", "xlsx", "jpg", "png", "zip"},
		},
	}
}

// DefaultLatePolicy returns the late policy applied when none is supplied.
func DefaultLatePolicy() LatePolicy {
	return LatePolicy{
		SchemaVersion:        PolicySchemaVersion,
		Mode:                 LateModeAllowWithPenalty,
		PenaltyPercentPerDay: 10,
		PenaltyCapPercent:    50,
	}
}

// DefaultExtensionPolicy returns the extension policy applied when none is supplied.
func DefaultExtensionPolicy() ExtensionPolicy {
	return ExtensionPolicy{
		SchemaVersion:                PolicySchemaVersion,
		Allowed:                      true,
		RequireReason:                true,
		ApprovalRequiredAfterPublish: true,
	}
}

// DefaultGroupPolicy returns the group policy applied when none is supplied.
func DefaultGroupPolicy() GroupPolicy {
	return GroupPolicy{
		SchemaVersion: PolicySchemaVersion,
		GroupingModel: "free_form",
		MinSize:       2,
		MaxSize:       4,
	}
}

// DefaultMentoringPolicy returns the mentoring policy applied when none is supplied.
func DefaultMentoringPolicy() MentoringPolicy {
	return MentoringPolicy{
		SchemaVersion:             PolicySchemaVersion,
		EnabledAtSubject:          true,
		EnabledAtAssignment:       true,
		MentorsFromSubjectFaculty: true,
		MultipleMentorsPerStudent: true,
	}
}

// DefaultPlagiarismPolicy returns the plagiarism policy applied when none is supplied.
func DefaultPlagiarismPolicy() PlagiarismPolicy {
	return PlagiarismPolicy{
		SchemaVersion:         PolicySchemaVersion,
		Enabled:               true,
		WarnThresholdPercent:  20,
		BlockThresholdPercent: 40,
		ExcludeBibliography:   true,
	}
}

// DefaultDropPolicy returns the drop policy applied when none is supplied.
func DefaultDropPolicy() DropPolicy {
	return DropPolicy{
		SchemaVersion:           PolicySchemaVersion,
		PerStudentExcuseAllowed: true,
	}
}

// DecodePolicy decodes a raw JSON policy block into target, rejecting unknown
// fields so malformed configuration is caught at the boundary rather than at
// first use.
func DecodePolicy(raw []byte, target interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("malformed policy block: %w", err)
	}
	return nil
}
