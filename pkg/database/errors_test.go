package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("create grade: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(wrapped))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(fmt.Errorf("find student: %w", &pq.Error{Code: "22P02"})))
	assert.False(t, IsInvalidInput(&pq.Error{Code: "23505"}))
	assert.False(t, IsInvalidInput(errors.New("boom")))
}
