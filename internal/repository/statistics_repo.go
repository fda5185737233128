package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// AssignmentStatistics aggregates submission and marks figures for one
// assignment.
type AssignmentStatistics struct {
	AssignmentID    uint     `json:"assignment_id"`
	SubmissionCount int64    `json:"submission_count"`
	LateCount       int64    `json:"late_count"`
	GradedCount     int64    `json:"graded_count"`
	ExcusedCount    int64    `json:"excused_count"`
	AverageMarks    *float64 `json:"average_marks"`
	MinMarks        *float64 `json:"min_marks"`
	MaxMarks        *float64 `json:"max_marks"`
}

// FacultyLoad summarizes an evaluator's outstanding grading work.
type FacultyLoad struct {
	FacultyID       string `json:"faculty_id"`
	AssignmentCount int64  `json:"assignment_count"`
	SubmissionCount int64  `json:"submission_count"`
	GradedCount     int64  `json:"graded_count"`
	PendingCount    int64  `json:"pending_count"`
}

// StatisticsRepository computes derived read-path aggregates.
type StatisticsRepository interface {
	ForAssignment(ctx context.Context, assignmentID uint) (AssignmentStatistics, error)
	FacultyLoadByOffering(ctx context.Context, offeringID uint) ([]FacultyLoad, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

// NewStatisticsRepository instantiates a GORM-backed aggregate reader.
func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) ForAssignment(ctx context.Context, assignmentID uint) (AssignmentStatistics, error) {
	db := r.db.WithContext(ctx)
	stats := AssignmentStatistics{AssignmentID: assignmentID}

	err := db.Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Count(&stats.SubmissionCount).Error
	if err != nil {
		return AssignmentStatistics{}, err
	}

	err = db.Model(&models.Submission{}).
		Where("assignment_id = ? AND is_late = ?", assignmentID, true).
		Count(&stats.LateCount).Error
	if err != nil {
		return AssignmentStatistics{}, err
	}

	err = db.Model(&models.Mark{}).
		Where("assignment_id = ? AND is_excused = ?", assignmentID, false).
		Count(&stats.GradedCount).Error
	if err != nil {
		return AssignmentStatistics{}, err
	}

	err = db.Model(&models.Mark{}).
		Where("assignment_id = ? AND is_excused = ?", assignmentID, true).
		Count(&stats.ExcusedCount).Error
	if err != nil {
		return AssignmentStatistics{}, err
	}

	if stats.GradedCount > 0 {
		row := struct {
			Avg float64
			Min float64
			Max float64
		}{}
		err = db.Model(&models.Mark{}).
			Where("assignment_id = ? AND is_excused = ?", assignmentID, false).
			Select("AVG(raw_marks) AS avg, MIN(raw_marks) AS min, MAX(raw_marks) AS max").
			Scan(&row).Error
		if err != nil {
			return AssignmentStatistics{}, err
		}
		stats.AverageMarks = &row.Avg
		stats.MinMarks = &row.Min
		stats.MaxMarks = &row.Max
	}

	return stats, nil
}

func (r *statisticsRepository) FacultyLoadByOffering(ctx context.Context, offeringID uint) ([]FacultyLoad, error) {
	var loads []FacultyLoad
	err := r.db.WithContext(ctx).Model(&models.Evaluator{}).
		Select(`evaluators.faculty_id,
			COUNT(DISTINCT evaluators.assignment_id) AS assignment_count,
			COUNT(DISTINCT submissions.id) AS submission_count,
			COUNT(DISTINCT marks.id) AS graded_count,
			COUNT(DISTINCT submissions.id) - COUNT(DISTINCT marks.id) AS pending_count`).
		Joins("JOIN assignments ON assignments.id = evaluators.assignment_id").
		Joins("LEFT JOIN submissions ON submissions.assignment_id = assignments.id").
		Joins("LEFT JOIN marks ON marks.assignment_id = assignments.id AND marks.evaluator_id = evaluators.faculty_id").
		Where("assignments.offering_id = ?", offeringID).
		Group("evaluators.faculty_id").
		Order("evaluators.faculty_id ASC").
		Scan(&loads).Error
	if err != nil {
		return nil, err
	}
	return loads, nil
}
