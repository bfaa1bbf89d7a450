package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// AnswerCache persists per-attempt answers, accumulated time and the
// current-question start instant so that a session survives a reload.
// Read failures never surface: missing or corrupt data loads as empty.
type AnswerCache struct {
	store  CacheService
	logger *slog.Logger
	ttl    time.Duration
}

func NewAnswerCache(store CacheService, logger *slog.Logger, ttl time.Duration) *AnswerCache {
	return &AnswerCache{store: store, logger: logger, ttl: ttl}
}

func answersKey(attemptID int) string {
	return fmt.Sprintf("session:attempt:%d:answers", attemptID)
}

func timesKey(attemptID int) string {
	return fmt.Sprintf("session:attempt:%d:times", attemptID)
}

func questionStartKey(attemptID, questionID int) string {
	return fmt.Sprintf("session:attempt:%d:qstart:%d", attemptID, questionID)
}

func attemptPattern(attemptID int) string {
	return fmt.Sprintf("session:attempt:%d:*", attemptID)
}

// Load returns the cached mapping for the attempt. It never fails.
func (c *AnswerCache) Load(ctx context.Context, attemptID int) models.AnswerMapping {
	mapping := make(models.AnswerMapping)

	var answers map[string]string
	if c.read(ctx, answersKey(attemptID), &answers) {
		for k, v := range answers {
			id, err := strconv.Atoi(k)
			if err != nil || id <= 0 || v == "" {
				continue
			}
			rec := mapping[id]
			rec.SelectedAnswer = v
			mapping[id] = rec
		}
	}

	var times map[string]int
	if c.read(ctx, timesKey(attemptID), &times) {
		for k, v := range times {
			id, err := strconv.Atoi(k)
			if err != nil || id <= 0 || v <= 0 {
				continue
			}
			rec := mapping[id]
			rec.TimeSpentSeconds = v
			mapping[id] = rec
		}
	}
	return mapping
}

func (c *AnswerCache) read(ctx context.Context, key string, dest interface{}) bool {
	err := c.store.Get(ctx, key, dest)
	switch {
	case err == nil:
		return true
	case IsMiss(err):
	case IsCorrupt(err):
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
	default:
		c.logger.Warn("cache read failed, treating as empty", "key", key, "error", err)
	}
	return false
}

// Save overwrites both stored maps with the full mapping.
func (c *AnswerCache) Save(ctx context.Context, attemptID int, mapping models.AnswerMapping) error {
	answers := make(map[string]string, len(mapping))
	times := make(map[string]int, len(mapping))
	for id, rec := range mapping {
		key := strconv.Itoa(id)
		if rec.SelectedAnswer != "" {
			answers[key] = rec.SelectedAnswer
		}
		if rec.TimeSpentSeconds > 0 {
			times[key] = rec.TimeSpentSeconds
		}
	}
	if err := c.store.Set(ctx, answersKey(attemptID), answers, c.ttl); err != nil {
		return err
	}
	return c.store.Set(ctx, timesKey(attemptID), times, c.ttl)
}

// Clear removes every entry stored for the attempt, question start marks included.
func (c *AnswerCache) Clear(ctx context.Context, attemptID int) error {
	if err := c.store.Delete(ctx, answersKey(attemptID), timesKey(attemptID)); err != nil {
		return err
	}
	return c.store.DeletePattern(ctx, attemptPattern(attemptID))
}

func (c *AnswerCache) MarkQuestionStart(ctx context.Context, attemptID, questionID int, at time.Time) error {
	return c.store.Set(ctx, questionStartKey(attemptID, questionID), at.UnixMilli(), c.ttl)
}

// QuestionStart returns the recorded start instant of a question, if any.
func (c *AnswerCache) QuestionStart(ctx context.Context, attemptID, questionID int) (time.Time, bool) {
	var ms int64
	if !c.read(ctx, questionStartKey(attemptID, questionID), &ms) || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (c *AnswerCache) ClearQuestionStart(ctx context.Context, attemptID, questionID int) error {
	return c.store.Delete(ctx, questionStartKey(attemptID, questionID))
}
