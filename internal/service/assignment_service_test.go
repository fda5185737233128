package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/repository"
	"github.com/acadops/assignment-api/internal/validation"
)

var testNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

func openServiceDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Offering{},
		&models.CourseOutcome{},
		&models.Rubric{},
		&models.Assignment{},
		&models.COMapping{},
		&models.RubricAttachment{},
		&models.Evaluator{},
		&models.Group{},
		&models.GroupMember{},
		&models.Submission{},
		&models.Mark{},
		&models.Extension{},
		&models.Approval{},
		&models.AuditEntry{},
		&models.Snapshot{},
	))
	return db
}

func setupAssignmentService(t *testing.T) (*gorm.DB, AssignmentService) {
	t.Helper()

	db := openServiceDB(t, "assignment_service")

	ledger := NewLedgerService(db, nil, "", zerolog.Nop())
	if concrete, ok := ledger.(*ledgerService); ok {
		concrete.now = func() time.Time { return testNow }
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	service := NewAssignmentService(db, repository.NewOfferingRepository(db), validate, ledger, nil, zerolog.Nop())
	if concrete, ok := service.(*assignmentService); ok {
		concrete.now = func() time.Time { return testNow }
	}

	return db, service
}

func seedOffering(t *testing.T, db *gorm.DB) models.Offering {
	t.Helper()

	offering := models.Offering{
		AcademicYear: "2026-27",
		DegreeCode:   "BTECH-CSE",
		Year:         3,
		Term:         5,
		SubjectCode:  "CS301",
		SubjectName:  "Operating Systems",
		InternalMax:  40,
		ExternalMax:  60,
	}
	require.NoError(t, db.Create(&offering).Error)
	require.NoError(t, db.Create(&models.CourseOutcome{OfferingID: offering.ID, Code: "CO1", Description: "Processes and scheduling"}).Error)
	return offering
}

func createDraft(t *testing.T, service AssignmentService, offeringID uint, number int, dueAt time.Time) dto.AssignmentResponse {
	t.Helper()

	response, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offeringID,
		Number:     number,
		Title:      "Scheduler simulation",
		Bucket:     "Internal",
		MaxMarks:   10,
		DueAt:      dueAt.Format(time.RFC3339),
	}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.NoError(t, err)
	return response
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, assignmentID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(model).Where("assignment_id = ?", assignmentID).Count(&count).Error)
	return count
}

func TestAssignmentServiceCreate(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	response := createDraft(t, service, offering.ID, 1, testNow.Add(14*24*time.Hour))

	require.Equal(t, models.StatusDraft, response.Status)
	require.Equal(t, models.VisibilityHidden, response.Visibility)
	require.Equal(t, "CS301", response.SubjectCode)
	require.Equal(t, 15, response.GraceMinutes)
	require.True(t, response.ExtensionPolicy.Allowed)

	// Creation leaves an initial snapshot and a ledger entry.
	require.Equal(t, int64(1), countRows(t, db, &models.Snapshot{}, response.ID))
	var entry models.AuditEntry
	require.NoError(t, db.Where("assignment_id = ?", response.ID).First(&entry).Error)
	require.Equal(t, models.AuditOpCreate, entry.Operation)
	require.Equal(t, "FAC-9001", entry.ActorID)
}

func TestAssignmentServiceCreateDuplicateNumber(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	_, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offering.ID,
		Number:     1,
		Title:      "Another one",
		Bucket:     "Internal",
		MaxMarks:   5,
		DueAt:      testNow.Add(time.Hour).Format(time.RFC3339),
	}, Actor{ID: "FAC-9001", Role: "faculty"})

	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeDuplicateNumber))

	// The number is free in the other bucket.
	_, err = service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offering.ID,
		Number:     1,
		Title:      "External counterpart",
		Bucket:     "External",
		MaxMarks:   30,
		DueAt:      testNow.Add(time.Hour).Format(time.RFC3339),
	}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.NoError(t, err)
}

func TestAssignmentServiceBucketMoveIntoOccupiedSlot(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	external, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offering.ID,
		Number:     1,
		Title:      "External counterpart",
		Bucket:     "External",
		MaxMarks:   30,
		DueAt:      testNow.Add(time.Hour).Format(time.RFC3339),
	}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.NoError(t, err)

	// Internal already holds number 1, so the move is refused cleanly.
	bucket := "Internal"
	_, err = service.Update(context.Background(), external.ID, dto.AssignmentUpdateRequest{
		Bucket: &bucket,
	}, Actor{ID: "FAC-9001", Role: "faculty"})

	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeDuplicateNumber))

	var unchanged models.Assignment
	require.NoError(t, db.First(&unchanged, external.ID).Error)
	require.Equal(t, models.BucketExternal, unchanged.Bucket)

	// A second Internal draft with a free number can still move across.
	second, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offering.ID,
		Number:     2,
		Title:      "Roomier slot",
		Bucket:     "External",
		MaxMarks:   30,
		DueAt:      testNow.Add(time.Hour).Format(time.RFC3339),
	}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.NoError(t, err)

	moved, err := service.Update(context.Background(), second.ID, dto.AssignmentUpdateRequest{
		Bucket: &bucket,
	}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.NoError(t, err)
	require.Equal(t, models.BucketInternal, moved.Bucket)
}

func TestAssignmentServiceCreateDeniedForStudent(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	_, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offering.ID,
		Number:     1,
		Title:      "Not yours to create",
		Bucket:     "Internal",
		MaxMarks:   10,
		DueAt:      testNow.Add(time.Hour).Format(time.RFC3339),
	}, Actor{ID: "22BCE1001", Role: "student"})

	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodePermissionDenied))
}

func TestAssignmentServiceCreateMalformedPolicy(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	_, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		OfferingID: offering.ID,
		Number:     1,
		Title:      "Bad policy",
		Bucket:     "Internal",
		MaxMarks:   10,
		DueAt:      testNow.Add(time.Hour).Format(time.RFC3339),
		LatePolicy: []byte(`{"unknown_knob": true}`),
	}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.ErrorIs(t, err, ErrMalformedPolicy)
}

func TestAssignmentServicePublish(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	response := createDraft(t, service, offering.ID, 1, testNow.Add(14*24*time.Hour))
	require.NoError(t, db.Create(&models.COMapping{AssignmentID: response.ID, COCode: "CO1", Correlation: 2}).Error)

	published, err := service.Publish(context.Background(), response.ID, dto.PublishRequest{}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, published.Status)
	require.Equal(t, "SIC-22", published.PublishedBy)
	require.NotNil(t, published.PublishedAt)

	var snapshots []models.Snapshot
	require.NoError(t, db.Where("assignment_id = ?", response.ID).Order("sequence ASC").Find(&snapshots).Error)
	require.Len(t, snapshots, 2)
	require.Equal(t, models.SnapshotTriggerPublish, snapshots[1].Trigger)

	// Publishing twice is not a legal transition.
	_, err = service.Publish(context.Background(), response.ID, dto.PublishRequest{}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeTransitionNotAllowed))
}

func TestAssignmentServicePublishRefusalLeavesNoTrace(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	// Past due date and no positively correlated outcome: two independent
	// reasons to refuse.
	response := createDraft(t, service, offering.ID, 1, testNow.Add(-time.Hour))

	snapshotsBefore := countRows(t, db, &models.Snapshot{}, response.ID)
	auditBefore := countRows(t, db, &models.AuditEntry{}, response.ID)

	_, err := service.Publish(context.Background(), response.ID, dto.PublishRequest{}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodePastDueDate))
	require.True(t, violations.Has(validation.CodeInvalidRange))

	// The refusal wrote nothing: same status, same snapshot and ledger counts.
	var stored models.Assignment
	require.NoError(t, db.First(&stored, response.ID).Error)
	require.Equal(t, models.StatusDraft, stored.Status)
	require.Equal(t, snapshotsBefore, countRows(t, db, &models.Snapshot{}, response.ID))
	require.Equal(t, auditBefore, countRows(t, db, &models.AuditEntry{}, response.ID))
}

func TestAssignmentServicePublishDeniedForFaculty(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	response := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	_, err := service.Publish(context.Background(), response.ID, dto.PublishRequest{}, Actor{ID: "FAC-9001", Role: "faculty"})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodePermissionDenied))
}

func TestAssignmentServiceMajorEditReasonGate(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	response := createDraft(t, service, offering.ID, 1, testNow.Add(14*24*time.Hour))
	require.NoError(t, db.Create(&models.COMapping{AssignmentID: response.ID, COCode: "CO1", Correlation: 2}).Error)
	_, err := service.Publish(context.Background(), response.ID, dto.PublishRequest{}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	require.NoError(t, err)

	auditBefore := countRows(t, db, &models.AuditEntry{}, response.ID)
	newMax := 20.0

	// Missing reason refuses the edit before anything is written.
	_, err = service.Update(context.Background(), response.ID, dto.AssignmentUpdateRequest{MaxMarks: &newMax}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	require.ErrorIs(t, err, ErrReasonRequired)

	var stored models.Assignment
	require.NoError(t, db.First(&stored, response.ID).Error)
	require.Equal(t, 10.0, stored.MaxMarks)
	require.Equal(t, auditBefore, countRows(t, db, &models.AuditEntry{}, response.ID))

	// Faculty cannot make major edits at all.
	_, err = service.Update(context.Background(), response.ID, dto.AssignmentUpdateRequest{MaxMarks: &newMax, Reason: "moderation outcome"}, Actor{ID: "FAC-9001", Role: "faculty"})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodePermissionDenied))

	// With a reason the edit lands, elevated, with a pending approval row.
	updated, err := service.Update(context.Background(), response.ID, dto.AssignmentUpdateRequest{MaxMarks: &newMax, Reason: "moderation outcome"}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	require.NoError(t, err)
	require.Equal(t, 20.0, updated.MaxMarks)

	var entry models.AuditEntry
	require.NoError(t, db.Where("assignment_id = ? AND operation = ?", response.ID, models.AuditOpUpdate).First(&entry).Error)
	require.True(t, entry.Elevated)
	require.Equal(t, "max_marks", entry.Scope)
	require.Equal(t, "moderation outcome", entry.Reason)

	var approval models.Approval
	require.NoError(t, db.Where("assignment_id = ?", response.ID).First(&approval).Error)
	require.Equal(t, models.ApprovalTypeMajorEdit, approval.Type)
	require.Equal(t, models.ApprovalStatusPending, approval.Status)
}

func TestAssignmentServiceMinorEditNeedsNoReason(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)

	response := createDraft(t, service, offering.ID, 1, testNow.Add(24*time.Hour))

	title := "Scheduler simulation, part two"
	updated, err := service.Update(context.Background(), response.ID, dto.AssignmentUpdateRequest{Title: &title}, Actor{ID: "FAC-9001", Role: "faculty"})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)

	var count int64
	require.NoError(t, db.Model(&models.Approval{}).Where("assignment_id = ?", response.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestAssignmentServiceDelete(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()
	admin := Actor{ID: "ADM-1", Role: "admin"}

	response := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))
	require.NoError(t, service.Delete(ctx, response.ID, admin))

	// The ledger entry outlives the deleted row.
	var entry models.AuditEntry
	require.NoError(t, db.Where("assignment_id = ? AND operation = ?", response.ID, models.AuditOpDelete).First(&entry).Error)
	require.NotEmpty(t, entry.Before)

	_, err := service.Get(ctx, response.ID)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAssignmentServiceDeleteRestricted(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()
	admin := Actor{ID: "ADM-1", Role: "admin"}

	withSubmission := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))
	require.NoError(t, db.Create(&models.Submission{AssignmentID: withSubmission.ID, StudentRollNo: "22BCE1001", Type: "file", SubmittedAt: testNow}).Error)

	// A referenced draft cannot be deleted even by an admin.
	err := service.Delete(ctx, withSubmission.ID, admin)
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeDeleteRestricted))

	published := createDraft(t, service, offering.ID, 2, testNow.Add(14*24*time.Hour))
	require.NoError(t, db.Create(&models.COMapping{AssignmentID: published.ID, COCode: "CO1", Correlation: 2}).Error)
	_, err = service.Publish(ctx, published.ID, dto.PublishRequest{}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	require.NoError(t, err)

	err = service.Delete(ctx, published.ID, admin)
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeDeleteRestricted))
}

func TestAssignmentServiceArchiveRequiresReason(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()

	response := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	_, err := service.Archive(ctx, response.ID, dto.ArchiveRequest{}, Actor{ID: "ADM-1", Role: "admin"})
	require.Error(t, err)

	archived, err := service.Archive(ctx, response.ID, dto.ArchiveRequest{Reason: "term closed"}, Actor{ID: "ADM-1", Role: "admin"})
	require.NoError(t, err)
	require.Equal(t, models.StatusArchived, archived.Status)

	// Terminal: no further edits or transitions.
	title := "New title after archive"
	_, err = service.Update(ctx, response.ID, dto.AssignmentUpdateRequest{Title: &title}, Actor{ID: "ADM-1", Role: "admin"})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeTransitionNotAllowed))

	_, err = service.Deactivate(ctx, response.ID, dto.ArchiveRequest{Reason: "wrong button"}, Actor{ID: "ADM-1", Role: "admin"})
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeTransitionNotAllowed))
}

func TestAssignmentServiceVisibility(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()
	actor := Actor{ID: "SIC-22", Role: "subject_in_charge"}

	response := createDraft(t, service, offering.ID, 1, testNow.Add(14*24*time.Hour))

	// A draft stays Hidden.
	_, err := service.UpdateVisibility(ctx, response.ID, dto.VisibilityUpdateRequest{Visibility: "Visible_Accepting"}, actor)
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeTransitionNotAllowed))

	require.NoError(t, db.Create(&models.COMapping{AssignmentID: response.ID, COCode: "CO1", Correlation: 2}).Error)
	_, err = service.Publish(ctx, response.ID, dto.PublishRequest{}, actor)
	require.NoError(t, err)

	updated, err := service.UpdateVisibility(ctx, response.ID, dto.VisibilityUpdateRequest{Visibility: "Visible_Accepting"}, actor)
	require.NoError(t, err)
	require.Equal(t, models.VisibilityAccepting, updated.Visibility)

	updated, err = service.UpdateVisibility(ctx, response.ID, dto.VisibilityUpdateRequest{Visibility: "Closed"}, actor)
	require.NoError(t, err)
	require.Equal(t, models.VisibilityClosed, updated.Visibility)

	// No moving back.
	_, err = service.UpdateVisibility(ctx, response.ID, dto.VisibilityUpdateRequest{Visibility: "Visible_Accepting"}, actor)
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeTransitionNotAllowed))
}

func TestAssignmentServiceSetCOMapping(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()
	actor := Actor{ID: "FAC-9001", Role: "faculty"}

	response := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	mapping, err := service.SetCOMapping(ctx, response.ID, dto.COMappingRequest{COCode: "CO1", Correlation: 2}, actor)
	require.NoError(t, err)
	require.Equal(t, 2, mapping.Correlation)

	// Same code updates in place.
	mapping, err = service.SetCOMapping(ctx, response.ID, dto.COMappingRequest{COCode: "CO1", Correlation: 3}, actor)
	require.NoError(t, err)
	require.Equal(t, 3, mapping.Correlation)
	require.Equal(t, int64(1), countRows(t, db, &models.COMapping{}, response.ID))

	// Unknown outcome for the offering.
	_, err = service.SetCOMapping(ctx, response.ID, dto.COMappingRequest{COCode: "CO9", Correlation: 1}, actor)
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeScopeMismatch))

	// Correlation outside the allowed range.
	_, err = service.SetCOMapping(ctx, response.ID, dto.COMappingRequest{COCode: "CO1", Correlation: 4}, actor)
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeInvalidRange))
}

func TestAssignmentServiceAttachRubric(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()
	actor := Actor{ID: "FAC-9001", Role: "faculty"}

	rubric := models.Rubric{Name: "Lab report", Version: "v1"}
	scoped := models.Rubric{Name: "Capstone defense", Version: "v2", DegreeCode: "MTECH-VLSI"}
	require.NoError(t, db.Create(&rubric).Error)
	require.NoError(t, db.Create(&scoped).Error)

	response := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	attachment, err := service.AttachRubric(ctx, response.ID, dto.RubricAttachRequest{RubricID: rubric.ID, Mode: "A", WeightPercent: 100}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RubricModeSingle, attachment.Mode)
	require.Equal(t, "v1", attachment.RubricVersion)
	require.Equal(t, 1, attachment.Sequence)

	// Single mode admits exactly one attachment.
	_, err = service.AttachRubric(ctx, response.ID, dto.RubricAttachRequest{RubricID: rubric.ID, Mode: "A", WeightPercent: 100}, actor)
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeWeightMismatch))

	// A rubric scoped to another degree is rejected.
	other := createDraft(t, service, offering.ID, 2, testNow.Add(time.Hour))
	_, err = service.AttachRubric(ctx, other.ID, dto.RubricAttachRequest{RubricID: scoped.ID, Mode: "A", WeightPercent: 100}, actor)
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodeScopeMismatch))
}

func TestAssignmentServiceAssignEvaluator(t *testing.T) {
	db, service := setupAssignmentService(t)
	offering := seedOffering(t, db)
	ctx := context.Background()

	response := createDraft(t, service, offering.ID, 1, testNow.Add(time.Hour))

	evaluator, err := service.AssignEvaluator(ctx, response.ID, dto.EvaluatorRequest{FacultyID: "FAC-7002"}, Actor{ID: "SIC-22", Role: "subject_in_charge"})
	require.NoError(t, err)
	require.Equal(t, models.EvaluatorRoleEvaluator, evaluator.Role)
	require.True(t, evaluator.CanEditMarks)

	// Faculty are not on the evaluator-assignment capability list.
	_, err = service.AssignEvaluator(ctx, response.ID, dto.EvaluatorRequest{FacultyID: "FAC-7003"}, Actor{ID: "FAC-9001", Role: "faculty"})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	require.True(t, violations.Has(validation.CodePermissionDenied))
}
