package service

import "errors"

var (
	// ErrAssignmentNotFound indicates the assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAssignmentClosed indicates the assignment no longer accepts submissions.
	ErrAssignmentClosed = errors.New("assignment is closed")
	// ErrAssignmentPastDue indicates the deadline passed and late work is refused.
	ErrAssignmentPastDue = errors.New("assignment is past due and late submissions are not allowed")
	// ErrInvalidIdentity indicates malformed student identity fields.
	ErrInvalidIdentity = errors.New("invalid student information")
	// ErrNoAnswers indicates an empty answer set.
	ErrNoAnswers = errors.New("answers must not be empty")
	// ErrDuplicateSubmission indicates the student already submitted.
	ErrDuplicateSubmission = errors.New("student has already submitted this assignment")
	// ErrInvalidAssignment indicates a malformed assignment definition.
	ErrInvalidAssignment = errors.New("invalid assignment definition")
	// ErrInvalidQuestion indicates a malformed question definition.
	ErrInvalidQuestion = errors.New("invalid question definition")
	// ErrClassExists indicates the class is already on the roster.
	ErrClassExists = errors.New("class already exists")
	// ErrClassNotFound indicates the class is not on the roster.
	ErrClassNotFound = errors.New("class not found")
	// ErrInvalidCredentials indicates a wrong admin password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing, unknown or expired session.
	ErrUnauthorized = errors.New("session is invalid or expired")
)
