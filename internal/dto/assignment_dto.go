package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// QuestionPayload describes one question in create and update requests.
type QuestionPayload struct {
	ID             string          `json:"id" validate:"omitempty,max=64"`
	Type           string          `json:"type" validate:"required,oneof=single-choice multiple-choice short-answer"`
	Question       string          `json:"question" validate:"required"`
	Options        []string        `json:"options"`
	CorrectAnswer  json.RawMessage `json:"correct_answer"`
	CorrectAnswers []int           `json:"correct_answers"`
	Required       bool            `json:"required"`
	Points         float64         `json:"points" validate:"gte=0"`
}

// AssignmentSettingsPayload overrides assignment settings.
type AssignmentSettingsPayload struct {
	AllowLateSubmission *bool `json:"allow_late_submission"`
	ShowResults         *bool `json:"show_results"`
	RandomizeQuestions  *bool `json:"randomize_questions"`
}

// Apply overlays the provided toggles onto settings.
func (p *AssignmentSettingsPayload) Apply(settings models.AssignmentSettings) models.AssignmentSettings {
	if p == nil {
		return settings
	}
	if p.AllowLateSubmission != nil {
		settings.AllowLateSubmission = *p.AllowLateSubmission
	}
	if p.ShowResults != nil {
		settings.ShowResults = *p.ShowResults
	}
	if p.RandomizeQuestions != nil {
		settings.RandomizeQuestions = *p.RandomizeQuestions
	}
	return settings
}

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title       string                     `json:"title" validate:"required,max=200"`
	Description string                     `json:"description" validate:"max=5000"`
	DueDate     *time.Time                 `json:"due_date"`
	Questions   []QuestionPayload          `json:"questions" validate:"required,min=1,dive"`
	Settings    *AssignmentSettingsPayload `json:"settings"`
}

// AssignmentUpdateRequest describes a partial assignment update.
type AssignmentUpdateRequest struct {
	Title        *string                    `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string                    `json:"description" validate:"omitempty,max=5000"`
	DueDate      *time.Time                 `json:"due_date"`
	ClearDueDate bool                       `json:"clear_due_date"`
	Questions    []QuestionPayload          `json:"questions" validate:"omitempty,min=1,dive"`
	Status       *string                    `json:"status" validate:"omitempty,oneof=active inactive"`
	Settings     *AssignmentSettingsPayload `json:"settings"`
}

// AssignmentCreatedResponse is returned after an assignment is created.
type AssignmentCreatedResponse struct {
	AssignmentID string `json:"assignment_id"`
	StudentURL   string `json:"student_url"`
}

// BatchRequest applies a status operation to several assignments.
type BatchRequest struct {
	Operation     string   `json:"operation" validate:"required,oneof=activate deactivate"`
	AssignmentIDs []string `json:"assignment_ids" validate:"required,min=1,dive,required"`
}

// BatchResult reports the outcome for one assignment of a batch.
type BatchResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StudentQuestion is a question without its answer key.
type StudentQuestion struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Required bool     `json:"required"`
	Points   float64  `json:"points"`
}

// StudentAssignmentView is what students see before answering.
type StudentAssignmentView struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DueDate     *time.Time        `json:"due_date"`
	Questions   []StudentQuestion `json:"questions"`
	Settings    StudentSettings   `json:"settings"`
}

// StudentSettings exposes the settings relevant to students.
type StudentSettings struct {
	AllowLateSubmission bool `json:"allow_late_submission"`
	RandomizeQuestions  bool `json:"randomize_questions"`
}

// NewStudentAssignmentView strips answer keys from an assignment.
func NewStudentAssignmentView(model models.Assignment) StudentAssignmentView {
	questions := make([]StudentQuestion, 0, len(model.Questions))
	for _, q := range model.Questions {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		questions = append(questions, StudentQuestion{
			ID:       q.ID,
			Type:     q.Type,
			Question: q.Question,
			Options:  options,
			Required: q.Required,
			Points:   q.Weight(),
		})
	}

	return StudentAssignmentView{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		DueDate:     model.DueDate,
		Questions:   questions,
		Settings: StudentSettings{
			AllowLateSubmission: model.Settings.AllowLateSubmission,
			RandomizeQuestions:  model.Settings.RandomizeQuestions,
		},
	}
}

// QuestionStatistic aggregates answers for one question.
type QuestionStatistic struct {
	QuestionID  string  `json:"question_id"`
	Type        string  `json:"type"`
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
	NeedsReview int     `json:"needs_review"`
}

// DetailedStatistics breaks a ledger down by class and question.
type DetailedStatistics struct {
	TotalSubmissions   int                 `json:"total_submissions"`
	LateSubmissions    int                 `json:"late_submissions"`
	SubmissionsByClass map[string]int      `json:"submissions_by_class"`
	QuestionStatistics []QuestionStatistic `json:"question_statistics"`
}

// AssignmentStatisticsResponse combines a ledger with its breakdown.
type AssignmentStatisticsResponse struct {
	models.SubmissionLedger
	DetailedStatistics DetailedStatistics `json:"detailed_statistics"`
}

// ExportResponse bundles an assignment with its ledger.
type ExportResponse struct {
	Assignment  models.Assignment       `json:"assignment"`
	Submissions models.SubmissionLedger `json:"submissions"`
	ExportedAt  time.Time               `json:"exported_at"`
	ExportedBy  string                  `json:"exported_by"`
}
