package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PatternStudio-server/models"
	"PatternStudio-server/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 前置条件错误，按从最根本到最次要的顺序检查，
// handler 直接把命中的那一条回给用户。
var (
	ErrNoTemplates         = errors.New("the selected set has no templates")
	ErrNoEligibleTemplates = errors.New("no active template with a usable image")
	ErrPatternMissing      = errors.New("a pattern image must be selected")
	ErrPatternNameMissing  = errors.New("a pattern name is required")
)

// basePrompt 与用户补充说明之间的分隔符
const promptDelimiter = "\n\n"

// GenerationInput 一次生成运行的全部输入，由 handler 从当前模板集合组装。
type GenerationInput struct {
	ProductTypeID      string                 `json:"product_type_id"`
	PatternImageURL    string                 `json:"pattern_image_url"`
	PatternName        string                 `json:"pattern_name"`
	PromptModification string                 `json:"prompt_modification"`
	Settings           models.OutputSettings  `json:"settings"`
	Templates          []models.ImageTemplate `json:"templates"`
}

// Orchestrator 生成编排器：对每个合格模板顺序调用生成协作方，
// 逐项维护状态，累计费用，循环结束后一次性写入历史。
type Orchestrator struct {
	generator    Generator
	blobs        store.BlobStore
	history      store.HistoryRepository
	registry     *SessionRegistry
	costPerImage float64
	logger       *zap.Logger
}

func NewOrchestrator(generator Generator, blobs store.BlobStore, history store.HistoryRepository, registry *SessionRegistry, costPerImage float64, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		generator:    generator,
		blobs:        blobs,
		history:      history,
		registry:     registry,
		costPerImage: costPerImage,
		logger:       logger.Named("Orchestrator"),
	}
}

// SessionBlobPrefix 会话的对象存储目录，级联清理按此前缀列举。
func SessionBlobPrefix(sessionID string) string {
	return fmt.Sprintf("sessions/%s/", sessionID)
}

// CheckPreconditions 开跑前的检查，返回第一条未满足的前置条件。
func CheckPreconditions(in GenerationInput) error {
	if len(in.Templates) == 0 {
		return ErrNoTemplates
	}
	eligible := 0
	for _, t := range in.Templates {
		if t.IsActive && t.HasUsableImage() {
			eligible++
		}
	}
	if eligible == 0 {
		return ErrNoEligibleTemplates
	}
	if strings.TrimSpace(in.PatternImageURL) == "" {
		return ErrPatternMissing
	}
	if strings.TrimSpace(in.PatternName) == "" {
		return ErrPatternNameMissing
	}
	return nil
}

// ComposePrompt 基础提示词拼接用户补充说明。
func ComposePrompt(basePrompt, modification string) string {
	modification = strings.TrimSpace(modification)
	if modification == "" {
		return basePrompt
	}
	return basePrompt + promptDelimiter + modification
}

// PrepareSession 过滤合格模板、建好全部 pending 图并登记到 registry。
// 返回的会话立即回给 UI，逐项进度在任何外部调用完成前就能渲染。
// 不合格的模板静默排除，CheckPreconditions 已保证至少剩一个。
func (o *Orchestrator) PrepareSession(in GenerationInput) (models.GenerationSession, error) {
	if err := CheckPreconditions(in); err != nil {
		return models.GenerationSession{}, err
	}

	now := time.Now()
	session := models.GenerationSession{
		ID:              uuid.NewString(),
		ProductTypeID:   in.ProductTypeID,
		PatternImageURL: in.PatternImageURL,
		PatternName:     in.PatternName,
		OutputSettings:  in.Settings,
		Status:          models.SessionStatusInProgress,
		CreatedAt:       now,
	}
	for _, t := range in.Templates {
		if !t.IsActive || !t.HasUsableImage() {
			continue
		}
		session.Images = append(session.Images, models.GeneratedImage{
			ID:                 uuid.NewString(),
			SessionID:          session.ID,
			ImageTypeID:        t.ID,
			TemplateImageURL:   t.TemplateImageURL,
			PromptUsed:         ComposePrompt(t.BasePrompt, in.PromptModification),
			PromptModification: in.PromptModification,
			Status:             models.ImageStatusPending,
			CreatedAt:          now,
		})
	}

	if err := o.registry.Begin(session); err != nil {
		return models.GenerationSession{}, err
	}
	return session, nil
}

// Run 顺序处理会话里的每一张图。刻意不做并发：
// 既限制对生成协作方的峰值压力，也让费用和错误能明确归到单张图上。
// 单张失败记录在该图上，循环继续，部分失败是受支持的正常结果。
func (o *Orchestrator) Run(ctx context.Context, in GenerationInput, session models.GenerationSession) (models.GenerationSession, error) {
	defer o.registry.End(session)

	for i := range session.Images {
		img := &session.Images[i]
		img.Status = models.ImageStatusGenerating
		o.registry.Update(session)

		result, err := o.generator.Generate(ctx, GenerateRequest{
			TemplateImageURL: img.TemplateImageURL,
			PatternImageURL:  session.PatternImageURL,
			Prompt:           img.PromptUsed,
			AspectRatio:      session.OutputSettings.AspectRatio,
			Size:             session.OutputSettings.Size,
			Temperature:      session.OutputSettings.EffectiveTemperature(),
			Seed:             session.OutputSettings.EffectiveSeed(),
		})
		if err != nil {
			img.Status = models.ImageStatusFailed
			img.ErrorMessage = err.Error()
			o.logger.Warn("单张生成失败，继续处理后续模板",
				zap.String("sessionID", session.ID),
				zap.String("imageID", img.ID),
				zap.Error(err),
			)
			o.registry.Update(session)
			continue
		}

		url, err := o.storeResult(ctx, session.ID, img.ID, result)
		if err != nil {
			img.Status = models.ImageStatusFailed
			img.ErrorMessage = err.Error()
			o.registry.Update(session)
			continue
		}

		img.Status = models.ImageStatusCompleted
		img.GeneratedImageURL = url
		img.APICost = o.costPerImage
		o.registry.Update(session)
	}

	// 状态在写入前派生一次，历史记录只追加这一条
	session.Status = models.DeriveSessionStatus(session.Images)
	persisted, err := o.history.Append(ctx, session)
	if err != nil {
		return session, fmt.Errorf("persist session: %w", err)
	}
	o.logger.Info("会话处理完成",
		zap.String("sessionID", persisted.ID),
		zap.String("status", persisted.Status),
		zap.Float64("totalCost", models.TotalCost(persisted.Images)),
	)
	return persisted, nil
}

// Refine 对一张已完成的图追加一次修改：单独调用一次协作方，
// 结果追加到该图的 refinements，费用累加。不会创建新会话或新图。
func (o *Orchestrator) Refine(ctx context.Context, sessionID, imageID, instruction string) (models.GeneratedImage, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return models.GeneratedImage{}, errors.New("refinement instruction is required")
	}

	session, err := o.history.Get(ctx, sessionID)
	if err != nil {
		return models.GeneratedImage{}, err
	}
	var target *models.GeneratedImage
	for i := range session.Images {
		if session.Images[i].ID == imageID {
			target = &session.Images[i]
			break
		}
	}
	if target == nil {
		return models.GeneratedImage{}, store.ErrNotFound
	}
	if target.Status != models.ImageStatusCompleted {
		return models.GeneratedImage{}, fmt.Errorf("only completed images can be refined (status: %s)", target.Status)
	}

	// refinement 期间该图回到 generating，进度端点从 registry 能看到在途状态；
	// 同时占住产品类型，不与新一轮全量生成交错。
	target.Status = models.ImageStatusGenerating
	if err := o.registry.Begin(session); err != nil {
		target.Status = models.ImageStatusCompleted
		return models.GeneratedImage{}, err
	}
	defer o.registry.End(session)

	// 以当前最新结果为底图再次生成
	sourceURL := target.GeneratedImageURL
	if n := len(target.Refinements); n > 0 {
		sourceURL = target.Refinements[n-1].GeneratedImageURL
	}
	result, err := o.generator.Generate(ctx, GenerateRequest{
		TemplateImageURL: sourceURL,
		PatternImageURL:  session.PatternImageURL,
		Prompt:           instruction,
		AspectRatio:      session.OutputSettings.AspectRatio,
		Size:             session.OutputSettings.Size,
		Temperature:      session.OutputSettings.EffectiveTemperature(),
		Seed:             session.OutputSettings.EffectiveSeed(),
	})
	if err != nil {
		return models.GeneratedImage{}, fmt.Errorf("refine failed: %w", err)
	}

	objectID := fmt.Sprintf("%s_r%d", imageID, len(target.Refinements)+1)
	url, err := o.storeResult(ctx, sessionID, objectID, result)
	if err != nil {
		return models.GeneratedImage{}, err
	}

	target.Status = models.ImageStatusCompleted
	target.Refinements = append(target.Refinements, models.Refinement{
		Prompt:            instruction,
		GeneratedImageURL: url,
		CreatedAt:         time.Now(),
	})
	target.APICost += o.costPerImage
	if err := o.history.UpdateImage(ctx, sessionID, *target); err != nil {
		return models.GeneratedImage{}, err
	}
	return *target, nil
}

func (o *Orchestrator) storeResult(ctx context.Context, sessionID, objectID string, result *GenerateResult) (string, error) {
	ext := ".png"
	switch result.MimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	objectName := SessionBlobPrefix(sessionID) + objectID + ext
	url, err := o.blobs.Put(ctx, objectName, bytes.NewReader(result.Data), int64(len(result.Data)), result.MimeType)
	if err != nil {
		return "", fmt.Errorf("store generated image: %w", err)
	}
	return url, nil
}
