package store

import (
	"context"
	"testing"

	"PatternStudio-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsDuplicateInSameScope(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPatternRepository()

	_, err := repo.Add(ctx, models.PersistentPattern{Name: "Tropical", URL: "u1", ProductTypeID: "scope-a"})
	require.NoError(t, err)

	// 大小写和首尾空格都不能绕过重名检查
	_, err = repo.Add(ctx, models.PersistentPattern{Name: "  tropical ", URL: "u2", ProductTypeID: "scope-a"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	// 不同范围互不影响
	_, err = repo.Add(ctx, models.PersistentPattern{Name: "Tropical", URL: "u3", ProductTypeID: "scope-b"})
	assert.NoError(t, err)
}

func TestListStrictScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPatternRepository()

	_, err := repo.Add(ctx, models.PersistentPattern{Name: "Scoped", URL: "u1", ProductTypeID: "scope-a"})
	require.NoError(t, err)
	_, err = repo.Add(ctx, models.PersistentPattern{Name: "Global", URL: "u2"})
	require.NoError(t, err)

	scoped, err := repo.List(ctx, "scope-a")
	require.NoError(t, err)
	require.Len(t, scoped, 1, "范围过滤只返回完全匹配的记录")
	assert.Equal(t, "Scoped", scoped[0].Name)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRenameAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPatternRepository()

	p, err := repo.Add(ctx, models.PersistentPattern{Name: "Waves", URL: "u1"})
	require.NoError(t, err)

	require.NoError(t, repo.Rename(ctx, p.ID, "Big Waves"))
	all, _ := repo.List(ctx, "")
	assert.Equal(t, "Big Waves", all[0].Name)

	require.NoError(t, repo.Remove(ctx, p.ID))
	assert.ErrorIs(t, repo.Remove(ctx, p.ID), ErrNotFound)
	assert.ErrorIs(t, repo.Rename(ctx, "missing", "x"), ErrNotFound)
}
