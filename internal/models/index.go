package models

import (
	"slices"
	"time"
)

// AssignmentIndex lists every assignment with cached counters.
type AssignmentIndex struct {
	Assignments []AssignmentSummary `json:"assignments" validate:"dive"`
	Metadata    IndexMetadata       `json:"metadata"`
}

// AssignmentSummary is the index entry of one assignment.
type AssignmentSummary struct {
	ID              string     `json:"id" validate:"required"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DueDate         *time.Time `json:"due_date"`
	CreatedAt       time.Time  `json:"created_at"`
	Status          string     `json:"status"`
	SubmissionCount int        `json:"submission_count" validate:"gte=0"`
}

// IndexMetadata describes the index as a whole.
type IndexMetadata struct {
	TotalAssignments int       `json:"total_assignments"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewAssignmentIndex returns an empty index.
func NewAssignmentIndex(now time.Time) AssignmentIndex {
	return AssignmentIndex{
		Assignments: []AssignmentSummary{},
		Metadata:    IndexMetadata{LastUpdated: now},
	}
}

// SummaryOf builds the index entry for an assignment.
func SummaryOf(assignment Assignment, submissionCount int) AssignmentSummary {
	return AssignmentSummary{
		ID:              assignment.ID,
		Title:           assignment.Title,
		Description:     assignment.Description,
		DueDate:         assignment.DueDate,
		CreatedAt:       assignment.CreatedAt,
		Status:          assignment.Status,
		SubmissionCount: submissionCount,
	}
}

// Find returns the position of the assignment in the index or -1.
func (i AssignmentIndex) Find(id string) int {
	return slices.IndexFunc(i.Assignments, func(s AssignmentSummary) bool {
		return s.ID == id
	})
}

// Upsert replaces or appends an entry and refreshes the metadata.
func (i *AssignmentIndex) Upsert(summary AssignmentSummary, now time.Time) {
	if pos := i.Find(summary.ID); pos >= 0 {
		i.Assignments[pos] = summary
	} else {
		i.Assignments = append(i.Assignments, summary)
	}
	i.touch(now)
}

// Remove drops the entry with the given id. It reports whether one existed.
func (i *AssignmentIndex) Remove(id string, now time.Time) bool {
	pos := i.Find(id)
	if pos < 0 {
		return false
	}
	i.Assignments = slices.Delete(i.Assignments, pos, pos+1)
	i.touch(now)
	return true
}

func (i *AssignmentIndex) touch(now time.Time) {
	i.Metadata.TotalAssignments = len(i.Assignments)
	i.Metadata.LastUpdated = now
}
