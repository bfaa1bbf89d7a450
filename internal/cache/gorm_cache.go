package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry is the row layout of the database-backed cache.
type CacheEntry struct {
	Key       string         `gorm:"primaryKey;size:255" json:"key"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`
	ExpiresAt *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (CacheEntry) TableName() string {
	return "session_cache_entries"
}

type gormCache struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewGormCache migrates the cache table and returns a CacheService backed by it.
func NewGormCache(db *gorm.DB, logger *slog.Logger) (CacheService, error) {
	if err := db.AutoMigrate(&CacheEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache table: %w", err)
	}
	return &gormCache{db: db, logger: logger, now: time.Now}, nil
}

func (g *gormCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}
	entry := CacheEntry{Key: key, Value: datatypes.JSON(data), UpdatedAt: g.now()}
	if ttl > 0 {
		exp := g.now().Add(ttl)
		entry.ExpiresAt = &exp
	}
	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (g *gormCache) Get(ctx context.Context, key string, dest interface{}) error {
	var entry CacheEntry
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if entry.ExpiresAt != nil && !g.now().Before(*entry.ExpiresAt) {
		if err := g.Delete(ctx, key); err != nil {
			g.logger.Warn("failed to evict expired cache entry", "key", key, "error", err)
		}
		return ErrCacheMiss
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptEntry, key, err)
	}
	return nil
}

func (g *gormCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := g.db.WithContext(ctx).Where("key IN ?", keys).Delete(&CacheEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (g *gormCache) DeletePattern(ctx context.Context, pattern string) error {
	res := g.db.WithContext(ctx).Where("key LIKE ?", globToLike(pattern)).Delete(&CacheEntry{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete pattern %s: %w", pattern, res.Error)
	}
	g.logger.Debug("deleted keys by pattern", "pattern", pattern, "count", res.RowsAffected)
	return nil
}

// globToLike translates the * and ? wildcards to SQL LIKE syntax, escaping
// LIKE metacharacters already present in the key.
func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
