package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute))
	n, err := repo.Incr(ctx, "k")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.DeleteByPattern(ctx, "gabus:*"))
	assert.NoError(t, repo.Ping(ctx))
}
