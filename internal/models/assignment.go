package models

import (
	"encoding/json"
	"time"
)

// Assignment statuses.
const (
	AssignmentStatusActive   = "active"
	AssignmentStatusInactive = "inactive"
)

// Question types.
const (
	QuestionSingleChoice   = "single-choice"
	QuestionMultipleChoice = "multiple-choice"
	QuestionShortAnswer    = "short-answer"
)

// Assignment is a quiz definition stored under assignments/<id>.
type Assignment struct {
	ID          string             `json:"id" validate:"required"`
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	DueDate     *time.Time         `json:"due_date"`
	Questions   []Question         `json:"questions" validate:"dive"`
	Status      string             `json:"status" validate:"oneof=active inactive"`
	Settings    AssignmentSettings `json:"settings"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// AssignmentSettings toggles per-assignment behaviour.
type AssignmentSettings struct {
	AllowLateSubmission bool `json:"allow_late_submission"`
	ShowResults         bool `json:"show_results"`
	RandomizeQuestions  bool `json:"randomize_questions"`
}

// DefaultAssignmentSettings mirrors what a freshly created assignment gets.
func DefaultAssignmentSettings() AssignmentSettings {
	return AssignmentSettings{AllowLateSubmission: true}
}

// IsActive reports whether the assignment accepts submissions at all.
func (a Assignment) IsActive() bool {
	return a.Status == AssignmentStatusActive
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// Question is a single gradable item of an assignment.
type Question struct {
	ID             string          `json:"id" validate:"required"`
	Type           string          `json:"type" validate:"oneof=single-choice multiple-choice short-answer"`
	Question       string          `json:"question"`
	Options        []string        `json:"options"`
	CorrectAnswer  json.RawMessage `json:"correct_answer,omitempty"`
	CorrectAnswers []int           `json:"correct_answers,omitempty"`
	Required       bool            `json:"required"`
	Points         float64         `json:"points"`
}

// Weight returns the points the question contributes, defaulting to one.
func (q Question) Weight() float64 {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// CorrectIndex decodes the correct option index of a single-choice question.
func (q Question) CorrectIndex() (int, bool) {
	if len(q.CorrectAnswer) == 0 {
		return 0, false
	}
	var idx int
	if err := json.Unmarshal(q.CorrectAnswer, &idx); err != nil {
		return 0, false
	}
	return idx, true
}

// IsChoice reports whether the question offers options.
func (q Question) IsChoice() bool {
	return q.Type == QuestionSingleChoice || q.Type == QuestionMultipleChoice
}
