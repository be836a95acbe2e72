package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"PatternStudio-server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// create 的重试上限与基础退避间隔
const (
	createMaxAttempts  = 5
	createBackoffFloor = 20 * time.Millisecond
)

// TemplateSetRepository 把模板集合整体作为一份版本化文档管理。
// 全量替换走 CAS，并发编辑者中败者拿到 ErrConflict，由上层提示重新加载，
// 仓库本身不做合并。
type TemplateSetRepository struct {
	kv     VersionedStore
	logger *zap.Logger
}

func NewTemplateSetRepository(kv VersionedStore, logger *zap.Logger) *TemplateSetRepository {
	return &TemplateSetRepository{
		kv:     kv,
		logger: logger.Named("TemplateSetRepo"),
	}
}

// FetchAll 返回全部模板集合和当前版本号。
// 数据键从未写入过时播种默认集合并先行持久化（版本定为 "1"）；
// 已存在但为空数组的集合是用户显式清空的结果，原样返回，绝不重新播种。
func (r *TemplateSetRepository) FetchAll(ctx context.Context) ([]models.TemplateSet, string, error) {
	vals, err := r.kv.MGet(ctx, TemplateSetsKey, TemplateSetsVersionKey)
	if err != nil {
		return nil, "", fmt.Errorf("fetch template sets: %w", err)
	}
	data, version := vals[0], vals[1]

	if data == nil {
		return r.seedDefaults(ctx)
	}

	var sets []models.TemplateSet
	if err := json.Unmarshal([]byte(*data), &sets); err != nil {
		return nil, "", fmt.Errorf("decode template sets: %w", err)
	}
	if sets == nil {
		sets = []models.TemplateSet{}
	}

	// 版本键缺失视为 "1"，兼容引入版本号之前写入的数据
	ver := "1"
	if version != nil && *version != "" {
		ver = *version
	}
	return sets, ver, nil
}

func (r *TemplateSetRepository) seedDefaults(ctx context.Context) ([]models.TemplateSet, string, error) {
	defaults := models.DefaultTemplateSets()
	raw, err := json.Marshal(defaults)
	if err != nil {
		return nil, "", fmt.Errorf("encode default template sets: %w", err)
	}
	if err := r.kv.Set(ctx, TemplateSetsKey, string(raw)); err != nil {
		return nil, "", fmt.Errorf("seed template sets: %w", err)
	}
	if err := r.kv.Set(ctx, TemplateSetsVersionKey, "1"); err != nil {
		return nil, "", fmt.Errorf("seed template sets version: %w", err)
	}
	r.logger.Info("首次访问，已写入默认模板集合")
	return defaults, "1", nil
}

// ReplaceAll 在存储当前版本等于 expectedVersion 时整体替换集合，
// 返回自增后的新版本号；版本不匹配返回 ErrConflict，不产生部分写入。
func (r *TemplateSetRepository) ReplaceAll(ctx context.Context, sets []models.TemplateSet, expectedVersion string) (string, error) {
	if expectedVersion == "" {
		return "", ErrVersionRequired
	}
	if sets == nil {
		sets = []models.TemplateSet{}
	}
	raw, err := json.Marshal(sets)
	if err != nil {
		return "", fmt.Errorf("encode template sets: %w", err)
	}
	newVersion, ok, err := r.kv.CompareAndSwap(ctx, TemplateSetsVersionKey, TemplateSetsKey, expectedVersion, string(raw))
	if err != nil {
		return "", fmt.Errorf("replace template sets: %w", err)
	}
	if !ok {
		return "", ErrConflict
	}
	return newVersion, nil
}

// Create 追加一个新集合。追加同样要经过 CAS，所以实现为
// 读取-修改-写入 的有界重试循环，带随机退避；重试耗尽返回
// ErrTooMuchContention，提示用户稍后重试而不是按故障处理。
func (r *TemplateSetRepository) Create(ctx context.Context, set models.TemplateSet) (models.TemplateSet, string, error) {
	now := time.Now()
	set.ID = uuid.NewString()
	set.CreatedAt = now
	set.UpdatedAt = now
	if set.Templates == nil {
		set.Templates = []models.ImageTemplate{}
	}

	for attempt := 1; attempt <= createMaxAttempts; attempt++ {
		sets, version, err := r.FetchAll(ctx)
		if err != nil {
			return models.TemplateSet{}, "", err
		}
		newVersion, err := r.ReplaceAll(ctx, append(sets, set), version)
		if err == nil {
			return set, newVersion, nil
		}
		if !errors.Is(err, ErrConflict) {
			return models.TemplateSet{}, "", err
		}
		r.logger.Warn("create 撞上并发写入，退避后重试",
			zap.Int("attempt", attempt),
			zap.String("setName", set.Name),
		)
		time.Sleep(createBackoffFloor + time.Duration(rand.Intn(60))*time.Millisecond)
	}
	return models.TemplateSet{}, "", ErrTooMuchContention
}
