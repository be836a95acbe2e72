package service

import (
	"context"
	"strings"
	"testing"

	"PatternStudio-server/models"
	"PatternStudio-server/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// runSession 跑完一个两张图的会话，返回落库后的记录。
func runSession(t *testing.T, env *testEnv) models.GenerationSession {
	t.Helper()
	in := validInput()
	in.Templates = in.Templates[:2]
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	done, err := env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)
	require.Equal(t, 2, env.blobs.Count())
	return done
}

func TestDeleteSessionCascadesToBlobs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })
	svc := NewHistoryService(env.history, env.blobs, zap.NewNop())

	done := runSession(t, env)

	// 往会话目录塞一个记录里没有引用的孤儿对象，
	// 级联删除要靠前缀列举把它一并带走。
	_, err := env.blobs.Put(ctx, SessionBlobPrefix(done.ID)+"orphan.png",
		strings.NewReader("leftover"), 8, "image/png")
	require.NoError(t, err)
	require.Equal(t, 3, env.blobs.Count())

	require.NoError(t, svc.DeleteSession(ctx, done.ID))

	_, err = env.history.Get(ctx, done.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, env.blobs.Count(), "会话目录下的对象全部清掉，包括孤儿")
}

func TestDeleteSessionMissingRecord(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })
	svc := NewHistoryService(env.history, env.blobs, zap.NewNop())

	err := svc.DeleteSession(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteImageRemovesOnlyItsBlob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })
	svc := NewHistoryService(env.history, env.blobs, zap.NewNop())

	done := runSession(t, env)
	victim := done.Images[0]

	require.NoError(t, svc.DeleteImage(ctx, done.ID, victim.ID))

	remaining, err := env.history.Get(ctx, done.ID)
	require.NoError(t, err)
	require.Len(t, remaining.Images, 1, "会话记录保留，只少了被删的那张")
	assert.Equal(t, done.Images[1].ID, remaining.Images[0].ID)
	assert.Equal(t, 1, env.blobs.Count())

	// 幸存的那张图的对象还在
	left, err := env.blobs.List(ctx, SessionBlobPrefix(done.ID))
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, done.Images[1].GeneratedImageURL, left[0])
}

func TestDeleteImageCleansRefinementBlobs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })
	svc := NewHistoryService(env.history, env.blobs, zap.NewNop())

	done := runSession(t, env)
	_, err := env.orch.Refine(ctx, done.ID, done.Images[0].ID, "warmer tones")
	require.NoError(t, err)
	require.Equal(t, 3, env.blobs.Count())

	require.NoError(t, svc.DeleteImage(ctx, done.ID, done.Images[0].ID))
	assert.Equal(t, 1, env.blobs.Count(), "原图和 refinement 的对象一起删除")
}

func TestDeleteImageMissing(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })
	svc := NewHistoryService(env.history, env.blobs, zap.NewNop())

	done := runSession(t, env)
	err := svc.DeleteImage(context.Background(), done.ID, "no-such-image")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
