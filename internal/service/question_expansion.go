package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
	"github.com/noah-isme/gema-assessment-api/internal/visibility"
)

const maxOptionsNesting = 2

// QuestionExpander hydrates question-set membership into full question
// payloads and attaches them to assignments.
type QuestionExpander struct {
	questions repository.QuestionRepository
	sets      repository.QuestionSetRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewQuestionExpander builds the expander. cache may be nil.
func NewQuestionExpander(questions repository.QuestionRepository, sets repository.QuestionSetRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *QuestionExpander {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QuestionExpander{
		questions: questions,
		sets:      sets,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "question_expansion").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/question_expansion"),
	}
}

// ExpandQuestionSet returns set with its questions hydrated in declared order.
// Identifiers that no longer resolve are skipped. Answer keys are filtered for v.
func (e *QuestionExpander) ExpandQuestionSet(ctx context.Context, set models.QuestionSet, v viewer.Viewer) (dto.QuestionSetResponse, error) {
	ctx, span := e.tracer.Start(ctx, "expansion.question_set")
	span.SetAttributes(attribute.Int64("expansion.set_id", int64(set.ID)))
	defer span.End()

	questions, err := e.hydrate(ctx, set)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hydrate_failed")
		return dto.QuestionSetResponse{}, err
	}

	span.SetAttributes(attribute.Int("expansion.questions", len(questions)))
	return dto.NewQuestionSetResponse(set, visibility.Questions(questions, v)), nil
}

// ExpandAssignment always returns the assignment payload. When the linked set
// can be expanded it is attached; any failure is logged and counted instead.
func (e *QuestionExpander) ExpandAssignment(ctx context.Context, assignment models.Assignment, v viewer.Viewer) dto.AssignmentResponse {
	response := dto.NewAssignmentResponse(assignment)
	if assignment.QuestionSetID == nil {
		return response
	}

	set, err := e.sets.GetByID(ctx, *assignment.QuestionSetID)
	if err != nil {
		e.degraded(assignment, err)
		return response
	}

	expanded, err := e.ExpandQuestionSet(ctx, set, v)
	if err != nil {
		e.degraded(assignment, err)
		return response
	}

	response.QuestionSet = &expanded
	return response
}

// HydrateQuestion converts a stored question into a payload with parsed
// options. The answer key is carried but hidden until filtered.
func HydrateQuestion(question models.Question) dto.QuestionResponse {
	return dto.NewQuestionResponse(question, ParseOptions(question.Options))
}

// ParseOptions decodes a stored options blob. Arrays and objects are returned
// as decoded JSON, a JSON string holding one is unwrapped, and anything else
// yields nil.
func ParseOptions(raw string) interface{} {
	current := strings.TrimSpace(raw)
	for depth := 0; depth <= maxOptionsNesting; depth++ {
		if current == "" {
			return nil
		}

		value, ok := decodeDocument(current)
		if !ok {
			return nil
		}

		switch typed := value.(type) {
		case []interface{}, map[string]interface{}:
			return typed
		case string:
			current = strings.TrimSpace(typed)
		default:
			return nil
		}
	}
	return nil
}

// Invalidate drops cached expansions for the given sets.
func (e *QuestionExpander) Invalidate(ctx context.Context, setIDs ...uint) {
	if e.cache == nil || len(setIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(setIDs))
	for _, id := range setIDs {
		keys = append(keys, expansionCacheKey(id))
	}
	if err := e.cache.Del(ctx, keys...).Err(); err != nil {
		e.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate expansion cache")
	}
}

// InvalidateQuestion drops cached expansions of every set referencing questionID.
func (e *QuestionExpander) InvalidateQuestion(ctx context.Context, questionID uint) {
	if e.cache == nil {
		return
	}
	setIDs, err := e.sets.SetIDsContaining(ctx, questionID)
	if err != nil {
		e.logger.Warn().Err(err).Uint("question_id", questionID).Msg("failed to resolve sets for cache invalidation")
		return
	}
	e.Invalidate(ctx, setIDs...)
}

// hydrate returns the unfiltered, ordered question payloads of set.
func (e *QuestionExpander) hydrate(ctx context.Context, set models.QuestionSet) ([]dto.QuestionResponse, error) {
	if cached, ok := e.readCache(ctx, set.ID); ok {
		return cached, nil
	}

	ids := set.QuestionIDs()
	hydrated := make([]dto.QuestionResponse, 0, len(ids))
	if len(ids) > 0 {
		rows, err := e.questions.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		byID := make(map[uint]models.Question, len(rows))
		for _, row := range rows {
			byID[row.ID] = row
		}
		for _, id := range ids {
			question, ok := byID[id]
			if !ok {
				continue
			}
			hydrated = append(hydrated, HydrateQuestion(question))
		}
	}

	e.writeCache(ctx, set.ID, hydrated)
	return hydrated, nil
}

func (e *QuestionExpander) readCache(ctx context.Context, setID uint) ([]dto.QuestionResponse, bool) {
	if e.cache == nil || setID == 0 {
		return nil, false
	}

	cached, err := e.cache.Get(ctx, expansionCacheKey(setID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.ExpansionCache().WithLabelValues("error").Inc()
			e.logger.Warn().Err(err).Uint("question_set_id", setID).Msg("failed to read expansion cache")
		} else {
			observability.ExpansionCache().WithLabelValues("miss").Inc()
		}
		return nil, false
	}

	var questions []dto.QuestionResponse
	if err := json.Unmarshal([]byte(cached), &questions); err != nil {
		observability.ExpansionCache().WithLabelValues("error").Inc()
		e.logger.Warn().Err(err).Uint("question_set_id", setID).Msg("discarding unreadable expansion cache entry")
		return nil, false
	}

	observability.ExpansionCache().WithLabelValues("hit").Inc()
	return questions, true
}

func (e *QuestionExpander) writeCache(ctx context.Context, setID uint, questions []dto.QuestionResponse) {
	if e.cache == nil || setID == 0 {
		return
	}

	// cached entries keep answer keys; filtering happens on every read
	unfiltered := make([]dto.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		q.AnswerVisible = true
		unfiltered = append(unfiltered, q)
	}

	payload, err := json.Marshal(unfiltered)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, expansionCacheKey(setID), payload, e.cacheTTL).Err(); err != nil {
		e.logger.Warn().Err(err).Uint("question_set_id", setID).Msg("failed to store expansion cache")
	}
}

func (e *QuestionExpander) degraded(assignment models.Assignment, err error) {
	observability.ExpansionDegraded().WithLabelValues("assignment").Inc()
	event := e.logger.Warn().Err(err).Uint("assignment_id", assignment.ID)
	if assignment.QuestionSetID != nil {
		event = event.Uint("question_set_id", *assignment.QuestionSetID)
	}
	event.Msg("question set expansion degraded")
}

func expansionCacheKey(setID uint) string {
	return fmt.Sprintf("quizbank:qset:%d", setID)
}

// decodeDocument parses text as exactly one JSON value, keeping numbers as
// json.Number. Trailing input other than whitespace fails the parse.
func decodeDocument(text string) (interface{}, bool) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return value, true
}
