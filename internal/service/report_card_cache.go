package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/cache"
)

// reportCardCache keys cached report rows by two generation counters: one shared by every
// student and one per student. Readers resolve the key before loading grades and writers
// bump a counter, so rows rebuilt from a read that raced a write land under a key nobody
// asks for again.
type reportCardCache struct {
	cache *CacheService
}

// key returns the versioned row key for studentID. ok is false when the cache must be
// bypassed.
func (c reportCardCache) key(ctx context.Context, studentID string) (string, bool) {
	all, ok := c.cache.Generation(ctx, reportCardGenerationKey())
	if !ok {
		return "", false
	}
	own, ok := c.cache.Generation(ctx, reportCardStudentGenerationKey(studentID))
	if !ok {
		return "", false
	}
	return reportCardKey(studentID, all, own), true
}

func (c reportCardCache) get(ctx context.Context, key string, dest *[]models.ReportCardRow) bool {
	return c.cache.Get(ctx, key, dest)
}

func (c reportCardCache) set(ctx context.Context, key string, rows []models.ReportCardRow, ttl time.Duration) {
	c.cache.Set(ctx, key, rows, ttl)
}

// touchStudent retires the cached rows of one student.
func (c reportCardCache) touchStudent(ctx context.Context, studentID string) {
	if c.cache.Bump(ctx, reportCardStudentGenerationKey(studentID)) {
		return
	}
	c.cache.InvalidatePattern(ctx, cache.Key(reportCardCacheNamespace, studentID, "*"))
}

// touchAll retires the cached rows of every student.
func (c reportCardCache) touchAll(ctx context.Context) {
	if c.cache.Bump(ctx, reportCardGenerationKey()) {
		return
	}
	c.cache.InvalidatePattern(ctx, reportCardPattern())
}

func reportCardKey(studentID string, all, own int64) string {
	return cache.Key(reportCardCacheNamespace, studentID, fmt.Sprintf("v%d.%d", all, own))
}

func reportCardPattern() string {
	return cache.Key(reportCardCacheNamespace, "*")
}

func reportCardGenerationKey() string {
	return cache.Key(reportCardCacheNamespace+"-gen", "all")
}

func reportCardStudentGenerationKey(studentID string) string {
	return cache.Key(reportCardCacheNamespace+"-gen", "student", studentID)
}
