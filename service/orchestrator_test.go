package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"PatternStudio-server/models"
	"PatternStudio-server/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGenerator 按调用序号脚本化返回结果的假协作方。
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []GenerateRequest
	respond func(call int, req GenerateRequest) (*GenerateResult, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(n, req)
}

func okImage() (*GenerateResult, error) {
	return &GenerateResult{Data: []byte("png-bytes"), MimeType: "image/png"}, nil
}

type testEnv struct {
	orch    *Orchestrator
	gen     *fakeGenerator
	history *store.MemoryHistoryRepository
	blobs   *store.MemoryBlobStore
	reg     *SessionRegistry
}

func newTestEnv(respond func(call int, req GenerateRequest) (*GenerateResult, error)) *testEnv {
	gen := &fakeGenerator{respond: respond}
	history := store.NewMemoryHistoryRepository()
	blobs := store.NewMemoryBlobStore()
	reg := NewSessionRegistry()
	return &testEnv{
		orch:    NewOrchestrator(gen, blobs, history, reg, 0.04, zap.NewNop()),
		gen:     gen,
		history: history,
		blobs:   blobs,
		reg:     reg,
	}
}

func threeTemplates() []models.ImageTemplate {
	return []models.ImageTemplate{
		{ID: "t-1", Name: "Front", BasePrompt: "front view", IsActive: true, TemplateImageURL: "https://cdn/front.png"},
		{ID: "t-2", Name: "Side", BasePrompt: "side view", IsActive: true, TemplateImageURL: "https://cdn/side.png"},
		{ID: "t-3", Name: "Back", BasePrompt: "back view", IsActive: true, TemplateImageURL: "https://cdn/back.png"},
	}
}

func validInput() GenerationInput {
	return GenerationInput{
		ProductTypeID:   "hat",
		PatternImageURL: "https://cdn/pattern.png",
		PatternName:     "Tropical",
		Settings:        models.OutputSettings{AspectRatio: "1:1", Size: "medium", Mode: models.OutputModeManual},
		Templates:       threeTemplates(),
	}
}

func TestCheckPreconditionsPriorityOrder(t *testing.T) {
	// 没有任何模板：最根本的问题最先报
	in := validInput()
	in.Templates = nil
	in.PatternImageURL = ""
	in.PatternName = ""
	assert.ErrorIs(t, CheckPreconditions(in), ErrNoTemplates)

	// 有模板但全都不合格，且图案也缺失：先报模板问题
	in = validInput()
	for i := range in.Templates {
		in.Templates[i].IsActive = false
	}
	in.PatternImageURL = ""
	assert.ErrorIs(t, CheckPreconditions(in), ErrNoEligibleTemplates)

	in = validInput()
	in.PatternImageURL = "  "
	in.PatternName = ""
	assert.ErrorIs(t, CheckPreconditions(in), ErrPatternMissing)

	in = validInput()
	in.PatternName = "   "
	assert.ErrorIs(t, CheckPreconditions(in), ErrPatternNameMissing)

	assert.NoError(t, CheckPreconditions(validInput()))
}

func TestPrepareSessionExcludesIneligibleTemplates(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })

	in := validInput()
	in.Templates[1].IsActive = false
	in.Templates[2].TemplateImageURL = ""

	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	require.Len(t, session.Images, 1, "不合格的模板被静默排除")
	assert.Equal(t, "t-1", session.Images[0].ImageTypeID)
	assert.Equal(t, models.ImageStatusPending, session.Images[0].Status)
}

func TestPrepareSessionRejectsSecondRunForSameScope(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })

	_, err := env.orch.PrepareSession(validInput())
	require.NoError(t, err)

	_, err = env.orch.PrepareSession(validInput())
	assert.Error(t, err, "同一产品类型运行期间不允许再启动一个会话")
}

func TestRunContinuesPastPartialFailure(t *testing.T) {
	env := newTestEnv(func(call int, _ GenerateRequest) (*GenerateResult, error) {
		if call == 1 {
			return nil, errors.New("worker exploded")
		}
		return okImage()
	})

	in := validInput()
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	require.Len(t, session.Images, 3)

	done, err := env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)

	require.Len(t, done.Images, 3)
	assert.Equal(t, models.ImageStatusCompleted, done.Images[0].Status)
	assert.Equal(t, models.ImageStatusFailed, done.Images[1].Status)
	assert.Equal(t, models.ImageStatusCompleted, done.Images[2].Status)
	assert.Contains(t, done.Images[1].ErrorMessage, "worker exploded")
	assert.Empty(t, done.Images[1].GeneratedImageURL, "失败的图不产生存储产物")

	// 混合结果 -> in_progress
	assert.Equal(t, models.SessionStatusInProgress, done.Status)
	assert.InDelta(t, 0.08, models.TotalCost(done.Images), 1e-9)
	assert.Equal(t, 2, env.blobs.Count())

	// 历史只落一条，循环结束后写入
	sessions, err := env.history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, done.ID, sessions[0].ID)

	// 结束后 registry 释放，同一产品类型可以再跑
	_, ok := env.reg.Get(done.ID)
	assert.False(t, ok)
	_, err = env.orch.PrepareSession(in)
	assert.NoError(t, err)
}

func TestRunAllFailed(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) {
		return nil, errors.New("down")
	})

	in := validInput()
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)

	done, err := env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFailed, done.Status)
	assert.Zero(t, env.blobs.Count())
}

func TestRunProcessesSequentiallyInListedOrder(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })

	in := validInput()
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	_, err = env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)

	require.Len(t, env.gen.calls, 3)
	assert.Equal(t, "https://cdn/front.png", env.gen.calls[0].TemplateImageURL)
	assert.Equal(t, "https://cdn/side.png", env.gen.calls[1].TemplateImageURL)
	assert.Equal(t, "https://cdn/back.png", env.gen.calls[2].TemplateImageURL)
}

func TestComposePrompt(t *testing.T) {
	assert.Equal(t, "base", ComposePrompt("base", ""))
	assert.Equal(t, "base", ComposePrompt("base", "   "))
	assert.Equal(t, "base\n\nmake it pop", ComposePrompt("base", "make it pop"))
}

func TestRunUsesComposedPromptAndSettings(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })

	in := validInput()
	in.PromptModification = "slightly brighter"
	in.Settings = models.OutputSettings{
		AspectRatio: "4:5",
		Size:        "high",
		Mode:        models.OutputModeConsistent,
		Temperature: 0.9, // consistent 模式下必须被固定值覆盖
		Seed:        777,
	}
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	_, err = env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)

	first := env.gen.calls[0]
	assert.Equal(t, "front view\n\nslightly brighter", first.Prompt)
	assert.Equal(t, "https://cdn/pattern.png", first.PatternImageURL)
	assert.Equal(t, "4:5", first.AspectRatio)
	assert.Equal(t, models.ConsistentTemperature, first.Temperature)
	assert.Equal(t, models.ConsistentSeed, first.Seed)
}

func TestRefineAppendsToCompletedImage(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) { return okImage() })

	in := validInput()
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	done, err := env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)

	target := done.Images[0]
	refined, err := env.orch.Refine(context.Background(), done.ID, target.ID, "more contrast")
	require.NoError(t, err)

	require.Len(t, refined.Refinements, 1)
	assert.Equal(t, "more contrast", refined.Refinements[0].Prompt)
	assert.NotEmpty(t, refined.Refinements[0].GeneratedImageURL)
	assert.InDelta(t, 0.08, refined.APICost, 1e-9, "refinement 追加计费")
	assert.Equal(t, models.ImageStatusCompleted, refined.Status, "顶层状态不因 refinement 改变")

	// 写回了历史记录，而不是新开会话
	stored, err := env.history.Get(context.Background(), done.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images[0].Refinements, 1)
	sessions, _ := env.history.List(context.Background())
	assert.Len(t, sessions, 1)

	// refinement 以最新结果为底图
	lastCall := env.gen.calls[len(env.gen.calls)-1]
	assert.Equal(t, target.GeneratedImageURL, lastCall.TemplateImageURL)
}

func TestRefineExposesGeneratingState(t *testing.T) {
	var env *testEnv
	var watch struct {
		sessionID string
		imageID   string
		observed  string
	}
	env = newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) {
		// refinement 调用进行时从 registry 读该图的状态
		if watch.sessionID != "" {
			if s, ok := env.reg.Get(watch.sessionID); ok {
				for _, img := range s.Images {
					if img.ID == watch.imageID {
						watch.observed = img.Status
					}
				}
			}
		}
		return okImage()
	})

	in := validInput()
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	done, err := env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)

	watch.sessionID = done.ID
	watch.imageID = done.Images[0].ID
	refined, err := env.orch.Refine(context.Background(), done.ID, watch.imageID, "more contrast")
	require.NoError(t, err)

	assert.Equal(t, models.ImageStatusGenerating, watch.observed, "调用期间该图处于 generating")
	assert.Equal(t, models.ImageStatusCompleted, refined.Status, "结束后回到 completed")
	_, ok := env.reg.Get(done.ID)
	assert.False(t, ok, "结束后快照移除")

	stored, err := env.history.Get(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusCompleted, stored.Images[0].Status)

	_, err = env.orch.PrepareSession(in)
	assert.NoError(t, err, "refinement 结束后产品类型已释放")
}

func TestRefineRejectsFailedImage(t *testing.T) {
	env := newTestEnv(func(int, GenerateRequest) (*GenerateResult, error) {
		return nil, errors.New("down")
	})

	in := validInput()
	session, err := env.orch.PrepareSession(in)
	require.NoError(t, err)
	done, err := env.orch.Run(context.Background(), in, session)
	require.NoError(t, err)

	_, err = env.orch.Refine(context.Background(), done.ID, done.Images[0].ID, "fix it")
	assert.Error(t, err)

	_, err = env.orch.Refine(context.Background(), done.ID, "missing-image", "fix it")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
