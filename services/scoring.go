package services

import (
	"sort"
	"strings"

	"tutorlink_go/models"
	"tutorlink_go/utils"
)

// ScorableQuestion is the part of a question the scorer reads.
type ScorableQuestion struct {
	ID            uint
	Type          string
	CorrectAnswer string
	Subject       string
	Points        int
}

// SubmittedAnswer is one entry of a submission body.
type SubmittedAnswer struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

type SubjectScore struct {
	Subject    string  `json:"subject"`
	Score      float64 `json:"score"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type ScoreOutcome struct {
	Records    []models.AnswerRecord
	Score      float64
	Total      float64
	Percentage float64
	BySubject  []SubjectScore
}

// ScoreAnswers grades a submission. Unknown question ids are dropped,
// a repeated id keeps its first answer and unanswered questions score zero.
func ScoreAnswers(questions []ScorableQuestion, answers []SubmittedAnswer) ScoreOutcome {
	given := make(map[uint]string, len(answers))
	for _, a := range answers {
		if _, dup := given[a.QuestionID]; !dup {
			given[a.QuestionID] = a.Answer
		}
	}

	type acc struct{ score, total float64 }
	perSubject := map[string]*acc{}
	var subjectOrder []string

	out := ScoreOutcome{Records: make([]models.AnswerRecord, 0, len(questions))}
	for _, q := range questions {
		points := float64(q.Points)
		if points <= 0 {
			points = 1
		}
		answer, answered := given[q.ID]
		correct := answered && AnswerMatches(q.Type, answer, q.CorrectAnswer)

		out.Total += points
		if correct {
			out.Score += points
		}
		out.Records = append(out.Records, models.AnswerRecord{QuestionID: q.ID, Answer: answer, Correct: correct})

		subject := strings.TrimSpace(q.Subject)
		if subject == "" {
			continue
		}
		a, ok := perSubject[subject]
		if !ok {
			a = &acc{}
			perSubject[subject] = a
			subjectOrder = append(subjectOrder, subject)
		}
		a.total += points
		if correct {
			a.score += points
		}
	}
	out.Percentage = utils.Percentage(out.Score, out.Total)

	for _, s := range subjectOrder {
		a := perSubject[s]
		out.BySubject = append(out.BySubject, SubjectScore{
			Subject:    s,
			Score:      a.score,
			Total:      a.total,
			Percentage: utils.Percentage(a.score, a.total),
		})
	}
	return out
}

// RecommendSubjects lists subjects scoring below passing, weakest first.
// Ties keep question order.
func RecommendSubjects(bySubject []SubjectScore, passing float64) []string {
	weak := make([]SubjectScore, 0, len(bySubject))
	for _, s := range bySubject {
		if s.Percentage < passing {
			weak = append(weak, s)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Percentage < weak[j].Percentage })
	out := make([]string, 0, len(weak))
	for _, s := range weak {
		out = append(out, s.Subject)
	}
	return out
}

// AnswerMatches compares trimmed, case-folded text. true_false also accepts
// t/yes and f/no.
func AnswerMatches(questionType, given, correct string) bool {
	g := strings.TrimSpace(given)
	c := strings.TrimSpace(correct)
	if questionType == models.QuestionTrueFalse {
		gb, gok := normaliseBool(g)
		cb, cok := normaliseBool(c)
		if gok && cok {
			return gb == cb
		}
	}
	return g != "" && strings.EqualFold(g, c)
}

func normaliseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "t", "true", "yes", "y":
		return true, true
	case "f", "false", "no", "n":
		return false, true
	}
	return false, false
}

// ApplicationOutcome derives percentage and pass flag for a tutor application.
func ApplicationOutcome(score, total, passing float64) (float64, bool) {
	pct := utils.Percentage(score, total)
	return pct, total > 0 && pct >= passing
}
