package service

import "errors"

// ErrAssignmentNotFound indicates the assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrOfferingNotFound indicates the referenced subject offering does not exist.
var ErrOfferingNotFound = errors.New("offering not found")

// ErrRubricNotFound indicates the referenced catalog rubric does not exist.
var ErrRubricNotFound = errors.New("rubric not found")

// ErrSnapshotNotFound indicates the snapshot does not exist or belongs to a
// different assignment.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrExtensionNotFound indicates the extension request does not exist.
var ErrExtensionNotFound = errors.New("extension request not found")

// ErrReasonRequired indicates an operation that demands a justification was
// submitted without one.
var ErrReasonRequired = errors.New("a non-empty reason is required for this operation")

// ErrMalformedPolicy indicates a policy block failed strict decoding.
var ErrMalformedPolicy = errors.New("malformed policy block")

// ErrExtensionNotAllowed indicates the assignment's extension policy forbids
// per-student extensions.
var ErrExtensionNotAllowed = errors.New("extensions are not allowed for this assignment")

// ErrExtensionAlreadyDecided indicates the extension request is no longer
// pending.
var ErrExtensionAlreadyDecided = errors.New("extension request already decided")
