package service

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// ScoreCard is the graded result of one answer set.
type ScoreCard struct {
	Results    []models.QuestionResult
	Answers    map[string]json.RawMessage
	Score      float64
	MaxScore   float64
	Percentage int
}

// Scorer grades answers against an assignment's questions.
type Scorer struct {
	policy *bluemonday.Policy
}

// NewScorer builds a scorer that strips markup from free-text answers.
func NewScorer() *Scorer {
	return &Scorer{policy: bluemonday.StrictPolicy()}
}

// Score grades every question. Answers to unknown question ids are dropped.
func (s *Scorer) Score(questions []models.Question, answers map[string]json.RawMessage) ScoreCard {
	card := ScoreCard{
		Results: make([]models.QuestionResult, 0, len(questions)),
		Answers: make(map[string]json.RawMessage, len(questions)),
	}

	for _, question := range questions {
		points := question.Weight()
		card.MaxScore += points

		raw, answered := answers[question.ID]
		if answered && isNull(raw) {
			answered = false
		}

		result := models.QuestionResult{
			QuestionID: question.ID,
			MaxScore:   points,
		}

		switch question.Type {
		case models.QuestionSingleChoice:
			if answered {
				result.StudentAnswer = raw
				want, ok := question.CorrectIndex()
				got, valid := decodeIndex(raw)
				result.IsCorrect = ok && valid && want == got
			}
		case models.QuestionMultipleChoice:
			if answered {
				result.StudentAnswer = raw
				got, valid := decodeIndexSet(raw)
				result.IsCorrect = valid && sameSet(got, question.CorrectAnswers)
			}
		case models.QuestionShortAnswer:
			result.NeedsReview = true
			if answered {
				raw = s.sanitizeText(raw)
				result.StudentAnswer = raw
			}
		}

		if result.IsCorrect {
			result.Score = points
			card.Score += points
		}
		if answered {
			card.Answers[question.ID] = raw
		}
		card.Results = append(card.Results, result)
	}

	card.Percentage = Percentage(card.Score, card.MaxScore)
	return card
}

// Percentage rounds score/max to a whole percent, or 0 when max is 0.
func Percentage(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(100 * score / maxScore))
}

func (s *Scorer) sanitizeText(raw json.RawMessage) json.RawMessage {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return raw
	}
	cleaned, err := json.Marshal(strings.TrimSpace(s.policy.Sanitize(text)))
	if err != nil {
		return raw
	}
	return cleaned
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func decodeIndex(raw json.RawMessage) (int, bool) {
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	if value != math.Trunc(value) {
		return 0, false
	}
	return int(value), true
}

func decodeIndexSet(raw json.RawMessage) (map[int]struct{}, bool) {
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	set := make(map[int]struct{}, len(values))
	for _, value := range values {
		if value != math.Trunc(value) {
			return nil, false
		}
		set[int(value)] = struct{}{}
	}
	return set, true
}

func sameSet(got map[int]struct{}, want []int) bool {
	expected := make(map[int]struct{}, len(want))
	for _, idx := range want {
		expected[idx] = struct{}{}
	}
	if len(expected) != len(got) {
		return false
	}
	for idx := range expected {
		if _, ok := got[idx]; !ok {
			return false
		}
	}
	return true
}
