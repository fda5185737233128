package models

import "time"

// Group is a student group for group-enabled assignments.
type Group struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	AssignmentID uint          `gorm:"not null;uniqueIndex:idx_groups_assignment_name,priority:1" json:"assignment_id"`
	Name         string        `gorm:"size:128;not null;uniqueIndex:idx_groups_assignment_name,priority:2" json:"name"`
	Code         string        `gorm:"size:64" json:"code"`
	CreatedAt    time.Time     `json:"created_at"`
	CreatedBy    string        `gorm:"size:64" json:"created_by"`
	Members      []GroupMember `gorm:"constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// GroupMember is one student's membership in a group.
type GroupMember struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GroupID       uint      `gorm:"not null;uniqueIndex:idx_group_members_group_student,priority:1" json:"group_id"`
	StudentRollNo string    `gorm:"size:32;not null;uniqueIndex:idx_group_members_group_student,priority:2" json:"student_roll_no"`
	JoinedAt      time.Time `json:"joined_at"`
}
