package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// 单张生成图的状态（系统内统一使用这些状态）
const (
	ImageStatusPending    = "pending"
	ImageStatusGenerating = "generating"
	ImageStatusCompleted  = "completed"
	ImageStatusFailed     = "failed"
)

// 会话状态：所有图完成 -> completed，全部失败 -> failed，混合 -> in_progress
const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusFailed     = "failed"
)

// OutputSettings 的两种模式
const (
	OutputModeManual     = "manual"
	OutputModeConsistent = "consistent"

	// consistent 模式下强制使用的确定性参数
	ConsistentTemperature = 0.0
	ConsistentSeed        = 42
)

// OutputSettings 生成配置。Mode 为 consistent 时 temperature/seed
// 由固定常量决定，调用方一律通过 Effective* 读取。
type OutputSettings struct {
	AspectRatio    string  `json:"aspectRatio"`
	Size           string  `json:"size"` // low / medium / high
	Mode           string  `json:"mode"` // manual / consistent
	Temperature    float64 `json:"temperature,omitempty"`
	Seed           int     `json:"seed,omitempty"`
	FilenamePrefix string  `json:"filenamePrefix,omitempty"`
}

func (s OutputSettings) EffectiveTemperature() float64 {
	if s.Mode == OutputModeConsistent {
		return ConsistentTemperature
	}
	return s.Temperature
}

func (s OutputSettings) EffectiveSeed() int {
	if s.Mode == OutputModeConsistent {
		return ConsistentSeed
	}
	return s.Seed
}

// Refinement 对一张已完成图片的追加修改。
type Refinement struct {
	Prompt            string    `json:"prompt"`
	GeneratedImageURL string    `json:"generatedImageUrl"`
	CreatedAt         time.Time `json:"createdAt"`
}

// GeneratedImage 一次会话中针对一个模板的一次生成尝试。
type GeneratedImage struct {
	ID                 string       `json:"id"`
	SessionID          string       `json:"sessionId"`
	ImageTypeID        string       `json:"imageTypeId"` // 引用模板 ID
	TemplateImageURL   string       `json:"templateImageUrl"`
	PromptUsed         string       `json:"promptUsed"`
	PromptModification string       `json:"promptModification,omitempty"`
	GeneratedImageURL  string       `json:"generatedImageUrl,omitempty"`
	Status             string       `json:"status"`
	Refinements        []Refinement `json:"refinements,omitempty"`
	APICost            float64      `json:"apiCost"`
	ErrorMessage       string       `json:"errorMessage,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// GeneratedImageList 以 JSON 列的形式整体存入 generation_session 表。
type GeneratedImageList []GeneratedImage

// 实现 driver.Valuer 接口: Go Struct -> JSON String (存入数据库)
func (l GeneratedImageList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// 实现 sql.Scanner 接口: JSON String -> Go Struct (从数据库读取)
func (l *GeneratedImageList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("Failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}

func (s OutputSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *OutputSettings) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("Failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, s)
}

// GenerationSession 一次完整的生成运行，同时也是历史记录条目。
// 在编排循环结束后一次性写入，不做逐项增量持久化。
type GenerationSession struct {
	ID              string             `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProductTypeID   string             `gorm:"type:varchar(64)" json:"productTypeId"`
	PatternImageURL string             `gorm:"type:varchar(512)" json:"patternImageUrl"`
	PatternName     string             `gorm:"type:varchar(128)" json:"patternName"`
	OutputSettings  OutputSettings     `gorm:"type:json" json:"outputSettings"`
	Status          string             `gorm:"type:varchar(16)" json:"status"`
	Images          GeneratedImageList `gorm:"type:json" json:"images"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func (GenerationSession) TableName() string {
	return "generation_session"
}

// DeriveSessionStatus 计算会话状态，编排循环结束写入前调用一次。
func DeriveSessionStatus(images []GeneratedImage) string {
	completed, failed := 0, 0
	for _, img := range images {
		switch img.Status {
		case ImageStatusCompleted:
			completed++
		case ImageStatusFailed:
			failed++
		}
	}
	switch {
	case len(images) > 0 && completed == len(images):
		return SessionStatusCompleted
	case len(images) > 0 && failed == len(images):
		return SessionStatusFailed
	default:
		return SessionStatusInProgress
	}
}

// TotalCost 会话累计 API 费用（含 refinement 的追加计费）。
func TotalCost(images []GeneratedImage) float64 {
	var sum float64
	for _, img := range images {
		sum += img.APICost
	}
	return sum
}
