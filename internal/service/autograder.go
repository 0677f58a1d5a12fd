package service

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// GradeResult is the outcome of auto-grading a submission payload. Marks is
// nil exactly when Graded is false.
type GradeResult struct {
	Graded bool
	Marks  *int
}

// QuestionFinder batch-loads questions by id.
type QuestionFinder interface {
	FindByIDs(ctx context.Context, ids []uint) ([]models.Question, error)
}

// AutoGrader scores exact-match answers embedded in submission payloads.
type AutoGrader struct {
	questions QuestionFinder
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAutoGrader constructs the auto-grader.
func NewAutoGrader(questions QuestionFinder, logger zerolog.Logger) *AutoGrader {
	return &AutoGrader{
		questions: questions,
		logger:    logger.With().Str("component", "autograder").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/autograder"),
	}
}

// Grade scores submissionData. Payloads that are not a JSON object with an
// answers object are left ungraded. Each referenced question earns its full
// marks when the trimmed submitted value equals the trimmed answer key.
func (g *AutoGrader) Grade(ctx context.Context, submissionData string) GradeResult {
	ctx, span := g.tracer.Start(ctx, "autograde.score")
	defer span.End()

	answers, ok := extractAnswers(submissionData)
	if !ok {
		span.SetAttributes(attribute.Bool("autograde.graded", false))
		observability.Autograde().WithLabelValues("ungraded").Inc()
		return GradeResult{}
	}

	submitted := make(map[uint][]interface{}, len(answers))
	keys := make([]string, 0, len(answers))
	for key := range answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ids := make([]uint, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		questionID := uint(id)
		if _, seen := submitted[questionID]; !seen {
			ids = append(ids, questionID)
		}
		submitted[questionID] = append(submitted[questionID], answers[key])
	}

	marks := 0
	if len(ids) > 0 && g.questions != nil {
		questions, err := g.questions.FindByIDs(ctx, ids)
		if err != nil {
			span.RecordError(err)
			g.logger.Warn().Err(err).Int("question_count", len(ids)).Msg("failed to load questions for auto-grading")
			questions = nil
		}

		for _, question := range questions {
			if question.CorrectAnswer == nil {
				continue
			}
			expected := strings.TrimSpace(*question.CorrectAnswer)
			for _, value := range submitted[question.ID] {
				text, comparable := answerText(value)
				if comparable && strings.TrimSpace(text) == expected {
					marks += question.Marks
					break
				}
			}
		}
	}

	span.SetAttributes(
		attribute.Bool("autograde.graded", true),
		attribute.Int("autograde.questions", len(ids)),
		attribute.Int("autograde.marks", marks),
	)
	observability.Autograde().WithLabelValues("graded").Inc()

	return GradeResult{Graded: true, Marks: &marks}
}

func extractAnswers(submissionData string) (map[string]interface{}, bool) {
	payload, ok := decodeDocument(submissionData)
	if !ok {
		return nil, false
	}

	object, ok := payload.(map[string]interface{})
	if !ok {
		return nil, false
	}

	answers, ok := object["answers"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return answers, true
}

// answerText renders a submitted value for comparison. Numbers keep their
// literal JSON text; null, arrays and objects never match.
func answerText(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
