package models

import (
	"encoding/json"
	"time"
)

// SubmissionLedger is the append-only submission log of one assignment,
// stored under submissions/<assignment id>.
type SubmissionLedger struct {
	AssignmentID string           `json:"assignment_id" validate:"required"`
	Submissions  []Submission     `json:"submissions" validate:"dive"`
	Statistics   LedgerStatistics `json:"statistics"`
	LastUpdated  time.Time        `json:"last_updated"`
}

// LedgerStatistics caches aggregates derived from the submissions.
type LedgerStatistics struct {
	TotalSubmissions int     `json:"total_submissions" validate:"gte=0"`
	AverageScore     float64 `json:"average_score" validate:"gte=0"`
}

// NewLedger returns an empty ledger for the assignment.
func NewLedger(assignmentID string, now time.Time) SubmissionLedger {
	return SubmissionLedger{
		AssignmentID: assignmentID,
		Submissions:  []Submission{},
		LastUpdated:  now,
	}
}

// Append adds a submission and recomputes the statistics from scratch.
func (l *SubmissionLedger) Append(submission Submission, now time.Time) {
	l.Submissions = append(l.Submissions, submission)
	l.Recompute()
	l.LastUpdated = now
}

// Recompute rebuilds the cached statistics from the submission list.
func (l *SubmissionLedger) Recompute() {
	l.Statistics.TotalSubmissions = len(l.Submissions)
	if len(l.Submissions) == 0 {
		l.Statistics.AverageScore = 0
		return
	}

	total := 0
	for _, submission := range l.Submissions {
		total += submission.Percentage
	}
	l.Statistics.AverageScore = float64(total) / float64(len(l.Submissions))
}

// FindByStudentID returns the submission made under the given student id.
func (l SubmissionLedger) FindByStudentID(studentID string) (Submission, bool) {
	for _, submission := range l.Submissions {
		if studentID != "" && submission.StudentInfo.StudentID == studentID {
			return submission, true
		}
	}
	return Submission{}, false
}

// FindByNameAndClass returns the submission made under the name and class pair.
func (l SubmissionLedger) FindByNameAndClass(name, className string) (Submission, bool) {
	for _, submission := range l.Submissions {
		if submission.StudentInfo.Name == name && submission.StudentInfo.ClassName == className {
			return submission, true
		}
	}
	return Submission{}, false
}

// StudentInfo identifies who submitted.
type StudentInfo struct {
	Name      string `json:"name" validate:"required"`
	ClassName string `json:"class_name" validate:"required"`
	StudentID string `json:"student_id"`
}

// Submission is one scored answer set. It is never mutated once appended.
type Submission struct {
	ID              string                     `json:"id" validate:"required"`
	StudentInfo     StudentInfo                `json:"student_info"`
	Answers         map[string]json.RawMessage `json:"answers"`
	QuestionResults []QuestionResult           `json:"question_results"`
	Score           float64                    `json:"score"`
	MaxScore        float64                    `json:"max_score"`
	Percentage      int                        `json:"percentage" validate:"gte=0,lte=100"`
	SubmittedAt     time.Time                  `json:"submitted_at"`
	IsLate          bool                       `json:"is_late"`
	Address         string                     `json:"address"`
}

// QuestionResult is the grading outcome of one question.
type QuestionResult struct {
	QuestionID    string          `json:"question_id"`
	StudentAnswer json.RawMessage `json:"student_answer,omitempty"`
	IsCorrect     bool            `json:"is_correct"`
	Score         float64         `json:"score"`
	MaxScore      float64         `json:"max_score"`
	NeedsReview   bool            `json:"needs_review"`
}
