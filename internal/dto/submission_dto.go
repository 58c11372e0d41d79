package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// StudentInfoPayload identifies the submitting student.
type StudentInfoPayload struct {
	Name      string `json:"name" validate:"required,min=2,max=20"`
	ClassName string `json:"class_name" validate:"required,min=1,max=50"`
	StudentID string `json:"student_id" validate:"omitempty,student_id"`
}

// Normalize trims every identity field.
func (p StudentInfoPayload) Normalize() StudentInfoPayload {
	return StudentInfoPayload{
		Name:      strings.TrimSpace(p.Name),
		ClassName: strings.TrimSpace(p.ClassName),
		StudentID: strings.TrimSpace(p.StudentID),
	}
}

// Model converts the payload into the persisted identity.
func (p StudentInfoPayload) Model() models.StudentInfo {
	return models.StudentInfo{Name: p.Name, ClassName: p.ClassName, StudentID: p.StudentID}
}

// SubmitRequest is the body of a student submission.
type SubmitRequest struct {
	StudentInfo StudentInfoPayload         `json:"student_info"`
	Answers     map[string]json.RawMessage `json:"answers"`
}

// SubmissionResult is returned once a submission is durable.
type SubmissionResult struct {
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"max_score"`
	Percentage   int     `json:"percentage"`
	IsLate       bool    `json:"is_late"`
}

// CheckSubmissionQuery identifies a student by id or by name and class.
type CheckSubmissionQuery struct {
	Name      string `query:"name"`
	ClassName string `query:"class_name"`
	StudentID string `query:"student_id"`
}

// SubmissionInfo summarises an existing submission.
type SubmissionInfo struct {
	SubmittedAt time.Time `json:"submitted_at"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"max_score"`
	Percentage  int       `json:"percentage"`
}

// CheckSubmissionResponse tells a student whether they already submitted.
type CheckSubmissionResponse struct {
	HasSubmitted   bool            `json:"has_submitted"`
	SubmissionInfo *SubmissionInfo `json:"submission_info,omitempty"`
}

// NewSubmissionInfo converts a stored submission into its summary.
func NewSubmissionInfo(model models.Submission) *SubmissionInfo {
	return &SubmissionInfo{
		SubmittedAt: model.SubmittedAt,
		Score:       model.Score,
		MaxScore:    model.MaxScore,
		Percentage:  model.Percentage,
	}
}
